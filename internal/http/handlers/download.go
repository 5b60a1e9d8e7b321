package handlers

import (
	"fmt"
	"io"
	"net/http"
	"path"

	"mediaforge/pkg/zip"
)

// DownloadTaskAssets streams a zip archive of the task's stored assets.
func (a *App) DownloadTaskAssets(w http.ResponseWriter, r *http.Request) {
	task, ok := a.loadOwnedTask(w, r)
	if !ok {
		return
	}
	if len(task.ResultAssets) == 0 {
		a.error(w, http.StatusConflict, "no_assets", "task has no stored assets")
		return
	}

	archive := make([]zip.Asset, 0, len(task.ResultAssets))
	for _, asset := range task.ResultAssets {
		data, err := a.fetchAssetBytes(r, asset.StorageURL)
		if err != nil {
			a.Logger.Warn().Err(err).Str("task_id", task.TaskID).Str("storage_key", asset.StorageKey).Msg("download: asset fetch failed")
			continue
		}
		archive = append(archive, zip.Asset{
			Filename: path.Base(asset.StorageKey),
			MIME:     asset.MimeType,
			Data:     data,
		})
	}
	if len(archive) == 0 {
		a.error(w, http.StatusBadGateway, "storage_error", "no assets could be fetched")
		return
	}

	payload := zip.ArchiveAssets(archive)
	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", task.TaskID+".zip"))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(payload)
}

func (a *App) fetchAssetBytes(r *http.Request, url string) ([]byte, error) {
	client := a.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}
	req, err := http.NewRequestWithContext(r.Context(), http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}
