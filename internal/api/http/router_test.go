package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	auth "github.com/mind-engage/mindengage-scorm/internal/auth/middleware"
	"github.com/mind-engage/mindengage-scorm/internal/cam"
	"github.com/mind-engage/mindengage-scorm/internal/catalog"
	"github.com/mind-engage/mindengage-scorm/internal/config"
	"github.com/mind-engage/mindengage-scorm/internal/db"
	"github.com/mind-engage/mindengage-scorm/internal/platform/logger"
	"github.com/mind-engage/mindengage-scorm/internal/rbac"
	"github.com/mind-engage/mindengage-scorm/internal/storage"
)

const lessonManifest = `<?xml version="1.0"?>
<manifest identifier="LESSON" xmlns="http://www.imsproject.org/xsd/imscp_rootv1p1p2"
  xmlns:adlcp="http://www.adlnet.org/xsd/adlcp_rootv1p2">
  <organizations default="ORG">
    <organization identifier="ORG">
      <title>Lesson</title>
      <item identifier="I1" identifierref="R1"><title>Page</title></item>
    </organization>
  </organizations>
  <resources>
    <resource identifier="R1" type="webcontent" adlcp:scormtype="sco" href="page.html">
      <file href="page.html"/>
    </resource>
  </resources>
</manifest>`

const quizGIFT = `::Capital::What is the capital of France? {=Paris ~London ~Berlin}

The sun is a star. {T}
`

func newTestServer(t *testing.T, enableAuth bool) (*httptest.Server, Deps) {
	t.Helper()
	dir := t.TempDir()
	dsn := "file:" + filepath.Join(dir, "api.db") + "?_pragma=busy_timeout(5000)"
	conn, err := db.Open(context.Background(), db.DriverSQLite, dsn)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	blobs, err := storage.NewFSStore(filepath.Join(dir, "blobs"))
	require.NoError(t, err)

	hash, err := bcrypt.GenerateFromPassword([]byte("pw"), bcrypt.MinCost)
	require.NoError(t, err)

	d := Deps{
		Cfg: config.Config{
			EnableAuth:     enableAuth,
			TemplateSource: "bundled",
			Locale:         "en",
			OutputDir:      dir,
			CORSOrigins:    []string{"http://localhost:3000"},
		},
		Store: catalog.NewSQLStore(conn),
		Blobs: blobs,
		Auth: auth.NewAuthService("test-key",
			auth.Account{User: "ann", PassHash: string(hash), Role: rbac.RoleAuthor},
			auth.Account{User: "vic", PassHash: string(hash), Role: rbac.RoleViewer}),
		Log: logger.Nop(),
	}
	srv := httptest.NewServer(NewRouter(d))
	t.Cleanup(srv.Close)
	return srv, d
}

func packageZip(t *testing.T, manifest string, files ...string) []byte {
	t.Helper()
	var buf bytes.Buffer
	sink := storage.NewZipSink(&buf)
	require.NoError(t, sink.Put(cam.ManifestName, strings.NewReader(manifest)))
	for _, f := range files {
		require.NoError(t, sink.Put(f, strings.NewReader("<html></html>")))
	}
	require.NoError(t, sink.Close())
	return buf.Bytes()
}

func upload(t *testing.T, url string, body []byte, fields map[string]string) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", "lesson.zip")
	require.NoError(t, err)
	_, err = fw.Write(body)
	require.NoError(t, err)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	require.NoError(t, mw.Close())
	resp, err := http.Post(url, mw.FormDataContentType(), &buf)
	require.NoError(t, err)
	return resp
}

func zipNames(t *testing.T, body []byte) []string {
	t.Helper()
	src, err := storage.ZipFromBytes(body)
	require.NoError(t, err)
	names, err := src.Names()
	require.NoError(t, err)
	return names
}

func TestValidatePackage(t *testing.T) {
	srv, _ := newTestServer(t, false)

	resp := upload(t, srv.URL+"/packages/validate", packageZip(t, lessonManifest, "page.html"), nil)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var out validationView
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.True(t, out.Valid)
	assert.Equal(t, "LESSON", out.Manifest)
	require.Len(t, out.Organizations, 1)
	assert.True(t, out.Organizations[0].Default)

	resp = upload(t, srv.URL+"/packages/validate", packageZip(t, lessonManifest), nil)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	out = validationView{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.False(t, out.Valid)
	assert.NotEmpty(t, out.Issues)
}

func TestExportRoundTrip(t *testing.T) {
	srv, _ := newTestServer(t, false)

	resp, err := http.Post(srv.URL+"/exports?title=Geo", "text/plain", strings.NewReader(quizGIFT))
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	id := resp.Header.Get(headerExportID)
	require.NotEmpty(t, id)
	assert.Equal(t, "0", resp.Header.Get(headerIssues))
	assert.True(t, strings.HasPrefix(resp.Header.Get(headerLocation), "file://"))
	assert.Contains(t, zipNames(t, body), cam.ManifestName)

	resp, err = http.Get(srv.URL + "/exports")
	require.NoError(t, err)
	var runs []catalog.ExportRun
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&runs))
	resp.Body.Close()
	require.Len(t, runs, 1)
	assert.Equal(t, id, runs[0].ID)
	assert.Equal(t, "Geo", runs[0].Title)
	assert.Equal(t, 2, runs[0].QuestionCount)
	assert.Equal(t, int64(len(body)), runs[0].Bytes)

	resp, err = http.Get(srv.URL + "/exports/" + id + "/package")
	require.NoError(t, err)
	again, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, body, again)
}

func TestExportRejectsUnsupportedQuestion(t *testing.T) {
	srv, d := newTestServer(t, false)

	bad := `Pick {=a ~b} and match {=x -> 1 =y -> 2}`
	resp, err := http.Post(srv.URL+"/exports", "text/plain", strings.NewReader(bad))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

	runs, err := d.Store.ListExports(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, catalog.StatusFailed, runs[0].Status)
}

func TestExportRefusesPackagesOutsideOutputDir(t *testing.T) {
	srv, _ := newTestServer(t, false)

	for _, body := range []string{
		`Lesson {scorm:../secret?id=RES_A}`,
		`Lesson {scorm:/etc?id=X}`,
	} {
		resp, err := http.Post(srv.URL+"/exports", "text/plain", strings.NewReader(body))
		require.NoError(t, err)
		msg, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, body)
		assert.NotContains(t, string(msg), "no such file", body)
	}
}

func TestBuildCourse(t *testing.T) {
	srv, _ := newTestServer(t, false)

	resp := upload(t, srv.URL+"/courses/build", packageZip(t, lessonManifest, "page.html"), map[string]string{"title": "My course"})
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	assert.Contains(t, zipNames(t, body), "index.html")
	assert.Contains(t, zipNames(t, body), "page.html")

	resp = upload(t, srv.URL+"/courses/build", packageZip(t, lessonManifest), nil)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
}

func TestPreferences(t *testing.T) {
	srv, _ := newTestServer(t, false)

	req, _ := http.NewRequest(http.MethodPut, srv.URL+"/preferences/locale", strings.NewReader(`{"value":"de"}`))
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(srv.URL + "/preferences/locale")
	require.NoError(t, err)
	var got map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	resp.Body.Close()
	assert.Equal(t, "de", got["value"])

	resp, err = http.Get(srv.URL + "/preferences/missing")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAuthAndRoles(t *testing.T) {
	srv, _ := newTestServer(t, true)

	resp, err := http.Get(srv.URL + "/exports")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	login := func(user string) string {
		resp, err := http.Post(srv.URL+"/auth/login", "application/json",
			strings.NewReader(`{"username":"`+user+`","password":"pw"}`))
		require.NoError(t, err)
		defer resp.Body.Close()
		require.Equal(t, http.StatusOK, resp.StatusCode)
		var out struct {
			AccessToken string   `json:"access_token"`
			Permissions []string `json:"permissions"`
		}
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
		require.NotEmpty(t, out.Permissions)
		return out.AccessToken
	}

	do := func(tok, method, path, body string) int {
		req, _ := http.NewRequest(method, srv.URL+path, strings.NewReader(body))
		req.Header.Set("Authorization", "Bearer "+tok)
		req.Header.Set("Content-Type", "text/plain")
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		resp.Body.Close()
		return resp.StatusCode
	}

	viewer := login("vic")
	assert.Equal(t, http.StatusOK, do(viewer, http.MethodGet, "/exports", ""))
	assert.Equal(t, http.StatusForbidden, do(viewer, http.MethodPost, "/exports", quizGIFT))
	assert.Equal(t, http.StatusForbidden, do(viewer, http.MethodPut, "/preferences/locale", `{"value":"fr"}`))

	author := login("ann")
	assert.Equal(t, http.StatusOK, do(author, http.MethodPost, "/exports", quizGIFT))
}
