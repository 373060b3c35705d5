package client

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"
)

// Client talks to the portfolio tracker API. All authenticated calls attach
// the session's bearer token; a 401 from any of them expires the session.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
	Session    *Session
}

func New(baseURL string, session *Session) *Client {
	return &Client{
		BaseURL:    baseURL,
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
		Session:    session,
	}
}

type loginResponse struct {
	Token string `json:"token"`
}

// Login authenticates and stores the returned token on the session.
func (c *Client) Login(username, password string) error {
	body, err := json.Marshal(map[string]string{
		"username": username,
		"password": password,
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequest(http.MethodPost, c.BaseURL+"/api/auth/login", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	var resp loginResponse
	if err := c.do(req, &resp); err != nil {
		return err
	}
	c.Session.SetToken(resp.Token)
	return nil
}

type uploadResponse struct {
	ImportID string        `json:"import_id"`
	Status   string        `json:"status"`
	Preview  ImportPreview `json:"preview"`
}

// UploadCSV sends the file as multipart form data and returns the server's
// preview. Local guards (extension, size) are the flow's job; this method
// assumes the file already passed them.
func (c *Client) UploadCSV(portfolioID, filename string, content []byte) (*ImportPreview, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("csv_file", filename)
	if err != nil {
		return nil, err
	}
	if _, err := part.Write(content); err != nil {
		return nil, err
	}
	if err := writer.Close(); err != nil {
		return nil, err
	}

	url := fmt.Sprintf("%s/api/portfolios/%s/imports", c.BaseURL, portfolioID)
	req, err := http.NewRequest(http.MethodPost, url, &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	var resp uploadResponse
	if err := c.do(req, &resp); err != nil {
		return nil, err
	}

	preview := resp.Preview
	preview.ImportID = resp.ImportID
	preview.Status = resp.Status
	return &preview, nil
}

type confirmResponse struct {
	Message          string `json:"message"`
	CreatedPositions int    `json:"created_positions"`
}

// ConfirmImport applies a previewed import and returns how many positions
// were created.
func (c *Client) ConfirmImport(importID string) (int, error) {
	url := fmt.Sprintf("%s/api/imports/%s/confirm", c.BaseURL, importID)
	req, err := http.NewRequest(http.MethodPost, url, nil)
	if err != nil {
		return 0, err
	}

	var resp confirmResponse
	if err := c.do(req, &resp); err != nil {
		return 0, err
	}
	return resp.CreatedPositions, nil
}

// ImportStatusInfo is the server's record of an import.
type ImportStatusInfo struct {
	ImportID         string    `json:"import_id"`
	Status           string    `json:"status"`
	TotalRows        int       `json:"total_rows"`
	ValidRows        int       `json:"valid_rows"`
	ErrorRows        int       `json:"error_rows"`
	CreatedPositions int       `json:"created_positions"`
	ExpiresAt        time.Time `json:"expires_at"`
}

func (c *Client) ImportStatus(importID string) (*ImportStatusInfo, error) {
	url := fmt.Sprintf("%s/api/imports/%s/status", c.BaseURL, importID)
	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	var info ImportStatusInfo
	if err := c.do(req, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

type errorResponse struct {
	Error string `json:"error"`
}

func (c *Client) do(req *http.Request, out interface{}) error {
	if c.Session != nil {
		if token := c.Session.Token(); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	if resp.StatusCode >= 400 {
		if resp.StatusCode == http.StatusUnauthorized && c.Session != nil {
			c.Session.Expire()
		}

		var errResp errorResponse
		message := ""
		if json.Unmarshal(body, &errResp) == nil {
			message = errResp.Error
		}
		if message == "" {
			message = http.StatusText(resp.StatusCode)
		}
		return &RequestError{StatusCode: resp.StatusCode, Message: message}
	}

	if out == nil {
		return nil
	}
	return json.Unmarshal(body, out)
}
