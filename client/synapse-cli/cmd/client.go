package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// apiClient talks to the card service HTTP API.
type apiClient struct {
	baseURL string
	token   string
	http    *http.Client
}

// do sends one request and decodes a 2xx JSON body into out.
func (c *apiClient) do(method, path, contentType string, body io.Reader, out interface{}) (int, error) {
	req, err := http.NewRequest(method, strings.TrimRight(c.baseURL, "/")+path, body)
	if err != nil {
		return 0, err
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	hc := c.http
	if hc == nil {
		// card creation runs the whole pipeline server side
		hc = &http.Client{Timeout: 5 * time.Minute}
	}
	resp, err := hc.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var e struct {
			Error string `json:"error"`
			Kind  string `json:"kind"`
		}
		if json.Unmarshal(data, &e) == nil && e.Error != "" {
			if e.Kind != "" {
				return resp.StatusCode, fmt.Errorf("%s (%s, status %d)", e.Error, e.Kind, resp.StatusCode)
			}
			return resp.StatusCode, fmt.Errorf("%s (status %d)", e.Error, resp.StatusCode)
		}
		return resp.StatusCode, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	if out == nil || len(data) == 0 {
		return resp.StatusCode, nil
	}
	return resp.StatusCode, json.Unmarshal(data, out)
}

func (c *apiClient) addCard(sourceURL, note string, out interface{}) error {
	body, err := json.Marshal(map[string]string{"source_url": sourceURL, "note": note})
	if err != nil {
		return err
	}
	_, err = c.do(http.MethodPost, "/api/v1/cards", "application/json", bytes.NewReader(body), out)
	return err
}

func (c *apiClient) uploadCard(path, note string, out interface{}) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", filepath.Base(path))
	if err != nil {
		return err
	}
	if _, err := io.Copy(fw, f); err != nil {
		return err
	}
	if err := mw.WriteField("note", note); err != nil {
		return err
	}
	if err := mw.Close(); err != nil {
		return err
	}
	_, err = c.do(http.MethodPost, "/api/v1/cards/upload", mw.FormDataContentType(), &buf, out)
	return err
}

func (c *apiClient) listCards(skip, limit int, out interface{}) error {
	_, err := c.do(http.MethodGet, fmt.Sprintf("/api/v1/cards?skip=%d&limit=%d", skip, limit), "", nil, out)
	return err
}

func (c *apiClient) listClusters(out interface{}) error {
	_, err := c.do(http.MethodGet, "/api/v1/clusters", "", nil, out)
	return err
}

// recompute returns true when the request was queued rather than run inline.
func (c *apiClient) recompute(out interface{}) (bool, error) {
	status, err := c.do(http.MethodPost, "/api/v1/clusters/recompute", "", nil, out)
	return status == http.StatusAccepted, err
}
