package hub

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"

	"tutor-llm/internal/config"
)

// Artifact names used when the config does not pick its own.
const (
	CheckpointFile = "checkpoint.bin"
	TokenizerFile  = "tokenizer.bin"

	defaultBaseURL = "https://huggingface.co"
)

// Downloader fetches model artifacts from the hub into a local cache.
// Every request carries the bearer token; the hub rejects anonymous pulls
// for gated repositories.
type Downloader struct {
	repo           string
	token          string
	cacheDir       string
	checkpointFile string
	tokenizerFile  string
	baseURL        string
	client         *http.Client
}

func NewDownloader(cfg *config.HubConfig, token string) (*Downloader, error) {
	if cfg.Repo == "" {
		return nil, fmt.Errorf("hub repo is not configured")
	}
	if token == "" {
		return nil, fmt.Errorf("hub token is empty")
	}

	cacheDir := cfg.CacheDir
	if cacheDir == "" {
		base, err := os.UserCacheDir()
		if err != nil {
			return nil, fmt.Errorf("failed to resolve cache directory: %w", err)
		}
		cacheDir = filepath.Join(base, "tutor-llm", strings.ReplaceAll(cfg.Repo, "/", "--"))
	}

	checkpointFile := cfg.CheckpointFile
	if checkpointFile == "" {
		checkpointFile = CheckpointFile
	}
	tokenizerFile := cfg.TokenizerFile
	if tokenizerFile == "" {
		tokenizerFile = TokenizerFile
	}

	return &Downloader{
		repo:           cfg.Repo,
		token:          token,
		cacheDir:       cacheDir,
		checkpointFile: checkpointFile,
		tokenizerFile:  tokenizerFile,
		baseURL:        defaultBaseURL,
		client:         &http.Client{},
	}, nil
}

// DownloadModel ensures checkpoint and tokenizer artifacts are present in
// the cache and returns their paths. Cached files are reused unless
// forceDownload is set.
func (d *Downloader) DownloadModel(forceDownload bool) (string, string, error) {
	if err := os.MkdirAll(d.cacheDir, 0755); err != nil {
		return "", "", fmt.Errorf("failed to create cache directory: %w", err)
	}

	checkpointPath := filepath.Join(d.cacheDir, d.checkpointFile)
	tokenizerPath := filepath.Join(d.cacheDir, d.tokenizerFile)

	if !forceDownload && fileExists(checkpointPath) && fileExists(tokenizerPath) {
		log.Debug().Str("cache", d.cacheDir).Msg("Model artifacts already cached")
		return checkpointPath, tokenizerPath, nil
	}

	baseURL := fmt.Sprintf("%s/%s/resolve/main", d.baseURL, d.repo)

	files := []struct {
		name string
		path string
	}{
		{d.checkpointFile, checkpointPath},
		{d.tokenizerFile, tokenizerPath},
	}

	for _, file := range files {
		if !forceDownload && fileExists(file.path) {
			continue
		}
		log.Info().Str("file", file.name).Str("repo", d.repo).Msg("Downloading model artifact")
		if err := d.downloadFile(baseURL+"/"+file.name, file.path); err != nil {
			return "", "", fmt.Errorf("failed to download %s: %w", file.name, err)
		}
	}

	log.Info().Str("cache", d.cacheDir).Msg("Model cached")
	return checkpointPath, tokenizerPath, nil
}

func (d *Downloader) downloadFile(url, dest string) error {
	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+d.token)

	resp, err := d.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("HTTP %d: %s", resp.StatusCode, resp.Status)
	}

	// Artifact names may carry a subdirectory of the repo.
	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return err
	}

	// Write to a temp file first so an interrupted download never leaves a
	// truncated artifact behind for the cache check to accept.
	tmp, err := os.CreateTemp(filepath.Dir(dest), filepath.Base(dest)+".*")
	if err != nil {
		return err
	}
	if _, err := io.Copy(tmp, resp.Body); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), dest)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
