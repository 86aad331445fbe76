package web

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cardfile/cardfile/internal/contact"
)

func postContact(srv *Server, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/contacts", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return doRequest(srv, req)
}

func TestCreateContact(t *testing.T) {
	srv, _ := newTestServer(t, testConfig())

	rec := postContact(srv, `{"fullName": "Grace Hopper", "email": "grace@example.com"}`)

	require.Equal(t, http.StatusCreated, rec.Code)

	var created contact.Contact
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.NotEmpty(t, created.ID)
	assert.NotEmpty(t, created.UID)
	assert.NotEmpty(t, created.Etag)
	assert.Contains(t, created.CardData, "BEGIN:VCARD")
	assert.Contains(t, created.CardData, "FN:Grace Hopper")
}

func TestCreateContact_NoIdentity(t *testing.T) {
	srv, _ := newTestServer(t, testConfig())

	rec := postContact(srv, `{"organization": "Acme", "notes": "met at conference"}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "name, email, or phone")
}

func TestCreateContact_MalformedJSON(t *testing.T) {
	srv, _ := newTestServer(t, testConfig())

	rec := postContact(srv, `{"fullName": `)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetContact_NotFound(t *testing.T) {
	srv, _ := newTestServer(t, testConfig())

	rec := doRequest(srv, httptest.NewRequest(http.MethodGet, "/api/contacts/missing-id", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "contact not found")
}

func TestListContacts(t *testing.T) {
	srv, store := newTestServer(t, testConfig())
	ctx := context.Background()
	_, err := store.Create(ctx, contact.Fields{FullName: "Jane Doe", Email: "jane@example.com"})
	require.NoError(t, err)
	_, err = store.Create(ctx, contact.Fields{FullName: "John Roe", Email: "john@example.com"})
	require.NoError(t, err)

	rec := doRequest(srv, httptest.NewRequest(http.MethodGet, "/api/contacts", nil))

	require.Equal(t, http.StatusOK, rec.Code)

	var body listContactsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 2, body.Total)
	assert.Len(t, body.Contacts, 2)
}

func TestListContacts_EmptyIsArray(t *testing.T) {
	srv, _ := newTestServer(t, testConfig())

	rec := doRequest(srv, httptest.NewRequest(http.MethodGet, "/api/contacts", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"contacts":[]`)
}

func TestContactLifecycle(t *testing.T) {
	srv, _ := newTestServer(t, testConfig())

	rec := postContact(srv, `{"fullName": "Grace Hopper", "email": "grace@example.com"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	var created contact.Contact
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))

	rec = doRequest(srv, httptest.NewRequest(http.MethodGet, "/api/contacts/"+created.ID, nil))
	require.Equal(t, http.StatusOK, rec.Code)

	req := httptest.NewRequest(http.MethodPut, "/api/contacts/"+created.ID,
		strings.NewReader(`{"fullName": "Grace B. Hopper", "email": "grace@example.com"}`))
	req.Header.Set("Content-Type", "application/json")
	rec = doRequest(srv, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var updated contact.Contact
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &updated))
	assert.Equal(t, "Grace B. Hopper", updated.FullName)
	assert.Equal(t, created.UID, updated.UID)
	assert.NotEqual(t, created.Etag, updated.Etag)

	rec = doRequest(srv, httptest.NewRequest(http.MethodDelete, "/api/contacts/"+created.ID, nil))
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = doRequest(srv, httptest.NewRequest(http.MethodGet, "/api/contacts/"+created.ID, nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUpdateContact_NotFound(t *testing.T) {
	srv, _ := newTestServer(t, testConfig())

	req := httptest.NewRequest(http.MethodPut, "/api/contacts/missing-id",
		strings.NewReader(`{"fullName": "Nobody Here"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := doRequest(srv, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDeleteContact_NotFound(t *testing.T) {
	srv, _ := newTestServer(t, testConfig())

	rec := doRequest(srv, httptest.NewRequest(http.MethodDelete, "/api/contacts/missing-id", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
}
