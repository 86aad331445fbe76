package web

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cardfile/cardfile/internal/contact"
	"github.com/cardfile/cardfile/internal/importer"
)

// previewBody mirrors the preview response for decoding in tests.
type previewBody struct {
	Contacts   []importer.CandidateRecord `json:"contacts"`
	Duplicates []importer.DuplicateMatch  `json:"duplicates"`
	Validation struct {
		Warnings []importer.ValidationFinding `json:"warnings"`
		Errors   []importer.ValidationFinding `json:"errors"`
	} `json:"validation"`
	ParseErrors []string `json:"parseErrors"`
	TotalRows   int      `json:"totalRows"`
}

func multipartFile(t *testing.T, filename, content string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = fw.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func postPreview(t *testing.T, srv *Server, filename, content string) *httptest.ResponseRecorder {
	t.Helper()
	body, contentType := multipartFile(t, filename, content)
	req := httptest.NewRequest(http.MethodPost, "/api/import/preview", body)
	req.Header.Set("Content-Type", contentType)
	return doRequest(srv, req)
}

func TestImportPreview_ReturnsCandidatesAndDuplicates(t *testing.T) {
	srv, store := newTestServer(t, testConfig())
	seeded, err := store.Create(context.Background(), contact.Fields{FullName: "Jane Doe", Email: "jane@example.com"})
	require.NoError(t, err)

	csv := "full name,email\nJane Doe,jane@example.com\nNew Person,new@example.com\n"
	rec := postPreview(t, srv, "contacts.csv", csv)

	require.Equal(t, http.StatusOK, rec.Code)

	var body previewBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 2, body.TotalRows)
	assert.Len(t, body.Contacts, 2)
	require.Len(t, body.Duplicates, 1)
	assert.Equal(t, seeded.ID, body.Duplicates[0].ExistingID)
	assert.Equal(t, importer.MatchEmail, body.Duplicates[0].MatchType)

	// errors is reserved and always serializes as an empty array.
	assert.Contains(t, rec.Body.String(), `"errors":[]`)
}

func TestImportPreview_ParseWarningsAsFileFindings(t *testing.T) {
	srv, _ := newTestServer(t, testConfig())

	csv := "full name,zodiac\nAda Lovelace,leo\n"
	rec := postPreview(t, srv, "contacts.csv", csv)

	require.Equal(t, http.StatusOK, rec.Code)

	var body previewBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.NotEmpty(t, body.Validation.Warnings)
	first := body.Validation.Warnings[0]
	assert.Equal(t, 0, first.Row)
	assert.Equal(t, "file", first.Field)
	assert.Contains(t, first.Message, "zodiac")
}

func TestImportPreview_MissingFileField(t *testing.T) {
	srv, _ := newTestServer(t, testConfig())

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("note", "no file here"))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/import/preview", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := doRequest(srv, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "no file provided")
}

func TestImportPreview_UnsupportedExtension(t *testing.T) {
	srv, _ := newTestServer(t, testConfig())

	rec := postPreview(t, srv, "contacts.pdf", "full name\nAda\n")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "unsupported file type")
}

func TestImportPreview_EmptyFile(t *testing.T) {
	srv, _ := newTestServer(t, testConfig())

	rec := postPreview(t, srv, "contacts.csv", "   \n  \n")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "file is empty")
}

func TestImportPreview_FileTooLarge(t *testing.T) {
	cfg := testConfig()
	cfg.Upload.MaxFileSize = 16
	srv, _ := newTestServer(t, cfg)

	rec := postPreview(t, srv, "contacts.csv", strings.Repeat("x", 4096))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "file too large")
}

func postExecute(srv *Server, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/import/execute", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return doRequest(srv, req)
}

func TestImportExecute_AppliesDecisions(t *testing.T) {
	srv, store := newTestServer(t, testConfig())

	rec := postExecute(srv, `{
		"contacts": [
			{"rowNumber": 1, "fullName": "Ada Lovelace", "email": "ada@example.com"},
			{"rowNumber": 2, "fullName": "Left Alone"}
		],
		"actions": [
			{"rowNumber": 1, "action": "create"}
		]
	}`)

	require.Equal(t, http.StatusOK, rec.Code)

	var outcome importer.ImportOutcome
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &outcome))
	assert.True(t, outcome.Success)
	assert.Equal(t, 1, outcome.Created)
	assert.Equal(t, 1, outcome.Skipped)

	contacts, err := store.ListAll(context.Background())
	require.NoError(t, err)
	require.Len(t, contacts, 1)
	assert.Equal(t, "Ada Lovelace", contacts[0].FullName)
}

func TestImportExecute_RowFailureRollsBackWith200(t *testing.T) {
	srv, store := newTestServer(t, testConfig())

	rec := postExecute(srv, `{
		"contacts": [
			{"rowNumber": 1, "fullName": "Ada Lovelace", "email": "ada@example.com"},
			{"rowNumber": 2, "fullName": "Bad Update"}
		],
		"actions": [
			{"rowNumber": 1, "action": "create"},
			{"rowNumber": 2, "action": "update", "existingId": "no-such-contact"}
		]
	}`)

	require.Equal(t, http.StatusOK, rec.Code)

	var outcome importer.ImportOutcome
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &outcome))
	assert.False(t, outcome.Success)
	require.Len(t, outcome.Failures, 1)
	assert.Equal(t, 2, outcome.Failures[0].RowNumber)

	contacts, err := store.ListAll(context.Background())
	require.NoError(t, err)
	assert.Empty(t, contacts)
}

func TestImportExecute_MalformedJSON(t *testing.T) {
	srv, _ := newTestServer(t, testConfig())

	rec := postExecute(srv, `{"contacts": [`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid request body")
}
