package upload

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medconnect/backend/internal/auth"
	"github.com/medconnect/backend/internal/testutil"
)

func multipartRequest(t *testing.T, fileName string, content []byte, fields map[string]string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if fileName != "" {
		part, err := mw.CreateFormFile("file", fileName)
		require.NoError(t, err)
		_, err = part.Write(content)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/files", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestHandler_Upload(t *testing.T) {
	f := newFixture()
	h := NewHandler(f.svc)

	req := testutil.AsUser(multipartRequest(t, "report.pdf", pdfContent, map[string]string{"patientId": "p1"}), "writer", auth.RoleDoctor)
	rr := httptest.NewRecorder()
	h.Upload(rr, req)

	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	var file File
	testutil.DecodeBody(t, rr, &file)
	assert.Equal(t, "report.pdf", file.FileName)
	require.NotNil(t, file.PatientID)
	assert.Equal(t, "p1", *file.PatientID)
	assert.NotContains(t, rr.Body.String(), "storageKey")
}

func TestHandler_Upload_MissingFile(t *testing.T) {
	h := NewHandler(newFixture().svc)

	req := testutil.AsUser(multipartRequest(t, "", nil, map[string]string{"patientId": "p1"}), "p1", auth.RolePatient)
	rr := httptest.NewRecorder()
	h.Upload(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestHandler_Upload_TooLarge(t *testing.T) {
	h := NewHandler(newFixture().svc)

	big := bytes.Repeat([]byte("a"), multipartOverhead+2048)
	req := testutil.AsUser(multipartRequest(t, "big.txt", big, nil), "p1", auth.RolePatient)
	rr := httptest.NewRecorder()
	h.Upload(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestHandler_Upload_Unauthenticated(t *testing.T) {
	h := NewHandler(newFixture().svc)

	rr := httptest.NewRecorder()
	h.Upload(rr, multipartRequest(t, "a.txt", []byte("hi"), nil))

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestHandler_Download(t *testing.T) {
	f := newFixture()
	file := f.upload(t, "p1", auth.RolePatient, "")
	h := NewHandler(f.svc)

	req := httptest.NewRequest(http.MethodGet, "/files/"+file.ID+"/download", nil)
	req = testutil.AsUser(testutil.WithVars(req, map[string]string{"id": file.ID}), "reader", auth.RoleDoctor)
	rr := httptest.NewRecorder()
	h.Download(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, TypePDF, rr.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename=report.pdf`, rr.Header().Get("Content-Disposition"))
	assert.Equal(t, `"`+file.SHA256+`"`, rr.Header().Get("ETag"))
	assert.Equal(t, pdfContent, rr.Body.Bytes())
}

func TestHandler_Download_Forbidden(t *testing.T) {
	f := newFixture()
	file := f.upload(t, "p1", auth.RolePatient, "")
	h := NewHandler(f.svc)

	req := httptest.NewRequest(http.MethodGet, "/files/"+file.ID+"/download", nil)
	req = testutil.AsUser(testutil.WithVars(req, map[string]string{"id": file.ID}), "stranger", auth.RoleDoctor)
	rr := httptest.NewRecorder()
	h.Download(rr, req)

	assert.Equal(t, http.StatusForbidden, rr.Code)
}

func TestHandler_Delete(t *testing.T) {
	f := newFixture()
	file := f.upload(t, "p1", auth.RolePatient, "")
	h := NewHandler(f.svc)

	req := httptest.NewRequest(http.MethodDelete, "/files/"+file.ID, nil)
	req = testutil.AsUser(testutil.WithVars(req, map[string]string{"id": file.ID}), "p1", auth.RolePatient)
	rr := httptest.NewRecorder()
	h.Delete(rr, req)

	assert.Equal(t, http.StatusNoContent, rr.Code)
}

func TestHandler_ListForPatient(t *testing.T) {
	f := newFixture()
	f.upload(t, "p1", auth.RolePatient, "")
	h := NewHandler(f.svc)

	req := httptest.NewRequest(http.MethodGet, "/patients/p1/files?page=1&limit=10", nil)
	req = testutil.AsUser(testutil.WithVars(req, map[string]string{"patientId": "p1"}), "p1", auth.RolePatient)
	rr := httptest.NewRecorder()
	h.ListForPatient(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	var body struct {
		Data []File `json:"data"`
	}
	testutil.DecodeBody(t, rr, &body)
	assert.Len(t, body.Data, 1)
}
