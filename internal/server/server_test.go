package server

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"regexp"
	"testing"
	"time"

	"well-report/internal/config"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

func init() {
	gin.SetMode(gin.TestMode)
}

var jobIDPattern = regexp.MustCompile(`data-job-id="([0-9a-f-]+)"`)

func testServer(t *testing.T) (*Server, *config.Config) {
	t.Helper()
	root := t.TempDir()
	cfg := config.Default()
	cfg.Paths.ExportDir = filepath.Join(root, "export")
	cfg.Server.UploadDir = filepath.Join(root, "uploads")
	s := New(cfg, zap.NewNop())
	t.Cleanup(s.Wait)
	return s, cfg
}

func workbook(t *testing.T, rows [][]interface{}) []byte {
	t.Helper()
	f := excelize.NewFile()
	for i, r := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		r := r
		require.NoError(t, f.SetSheetRow("Sheet1", cell, &r))
	}
	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf))
	return buf.Bytes()
}

func wellsWorkbook(t *testing.T) []byte {
	return workbook(t, [][]interface{}{
		{"str", "well_id", "speed", "weight_on_bit", "torque"},
		{1, 1, 10.5, 12, 3.1},
		{2, 1, 11.2, 12.5, 3.3},
		{1, 2, 8.1, 11, 2.8},
		{2, 2, 8.4, 11.2, 2.9},
	})
}

func uploadRequest(t *testing.T, filename string, content []byte, fields map[string]string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if filename != "" {
		fw, err := mw.CreateFormFile("input_file", filename)
		require.NoError(t, err)
		_, err = fw.Write(content)
		require.NoError(t, err)
	}
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/run", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func do(s *Server, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func startJob(t *testing.T, s *Server, content []byte, fields map[string]string) (string, []*http.Cookie) {
	t.Helper()
	w := do(s, uploadRequest(t, "wells.xlsx", content, fields))
	require.Equal(t, http.StatusOK, w.Code)
	m := jobIDPattern.FindStringSubmatch(w.Body.String())
	require.Len(t, m, 2, "job id missing from page")
	return m[1], w.Result().Cookies()
}

func waitStatus(t *testing.T, s *Server, id string) map[string]interface{} {
	t.Helper()
	var st map[string]interface{}
	require.Eventually(t, func() bool {
		w := do(s, httptest.NewRequest(http.MethodGet, "/status?job_id="+id, nil))
		if w.Code != http.StatusOK {
			return false
		}
		st = decode(t, w)
		return st["status"] != string(StatusRunning)
	}, 10*time.Second, 20*time.Millisecond)
	return st
}

func TestIndex(t *testing.T) {
	s, _ := testServer(t)
	w := do(s, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `name="target_well" value="1"`)
	assert.Contains(t, w.Body.String(), "speed,weight_on_bit,torque")
	assert.NotContains(t, w.Body.String(), "data-job-id")
}

func TestRunJobLifecycle(t *testing.T) {
	s, cfg := testServer(t)
	id, cookies := startJob(t, s, wellsWorkbook(t), map[string]string{
		"target_well": "2",
		"columns":     "speed, torque",
		"lineplot":    "1",
	})

	st := waitStatus(t, s, id)
	require.Equal(t, string(StatusDone), st["status"], st["error"])

	result := st["result"].(map[string]interface{})
	assert.EqualValues(t, 2, result["wells"])
	assert.EqualValues(t, 4, result["rows"])
	assert.ElementsMatch(t, []interface{}{
		"drilling_report_1.png", "drilling_report_2.png", "wells_map.html", "wells_coordinates.xlsx",
	}, result["files"])
	assert.NotContains(t, result, "Dir")

	assert.FileExists(t, filepath.Join(cfg.Paths.ExportDir, "jobs", id, "wells_map.html"))

	w := do(s, httptest.NewRequest(http.MethodGet, "/download/"+id+"/drilling_report_1.png", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Disposition"), "drilling_report_1.png")
	assert.Equal(t, []byte("\x89PNG"), w.Body.Bytes()[:4])

	w = do(s, httptest.NewRequest(http.MethodGet, "/download/"+id+"/config.yaml", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(s, httptest.NewRequest(http.MethodGet, "/logs?job_id="+id, nil))
	require.Equal(t, http.StatusOK, w.Code)
	logs := decode(t, w)
	assert.EqualValues(t, 100, logs["progress"])
	assert.NotEmpty(t, logs["logs"])

	req := httptest.NewRequest(http.MethodGet, "/jobs", nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	w = do(s, req)
	require.Equal(t, http.StatusOK, w.Code)
	jobs := decode(t, w)["jobs"].([]interface{})
	require.Len(t, jobs, 1)
	assert.Equal(t, id, jobs[0].(map[string]interface{})["id"])
	assert.NotContains(t, jobs[0], "logs")
}

func TestRunFailureIsReported(t *testing.T) {
	s, _ := testServer(t)
	content := workbook(t, [][]interface{}{
		{"str", "speed"},
		{1, 10},
	})
	id, _ := startJob(t, s, content, nil)

	st := waitStatus(t, s, id)
	assert.Equal(t, string(StatusError), st["status"])
	assert.Contains(t, st["error"], "well_id")

	w := do(s, httptest.NewRequest(http.MethodGet, "/download/"+id+"/wells_map.html", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRunRejectsBadUploads(t *testing.T) {
	s, cfg := testServer(t)

	w := do(s, uploadRequest(t, "", nil, map[string]string{"target_well": "1"}))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "Please choose a workbook.")

	w = do(s, uploadRequest(t, "wells.csv", []byte("str,well_id\n"), nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "Only .xlsx workbooks are supported.")

	_, err := os.Stat(cfg.Server.UploadDir)
	assert.True(t, os.IsNotExist(err))
}

func TestUnknownJob(t *testing.T) {
	s, _ := testServer(t)
	for _, path := range []string{"/logs?job_id=nope", "/status?job_id=nope", "/download/nope/wells_map.html"} {
		w := do(s, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusNotFound, w.Code, path)
	}

	w := do(s, httptest.NewRequest(http.MethodGet, "/jobs", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, decode(t, w)["jobs"])
}

func TestDownloadTemplate(t *testing.T) {
	s, _ := testServer(t)
	w := do(s, httptest.NewRequest(http.MethodGet, "/download-template", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Disposition"), "template.xlsx")

	f, err := excelize.OpenReader(bytes.NewReader(w.Body.Bytes()))
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows(f.GetSheetName(0))
	require.NoError(t, err)
	require.NotEmpty(t, rows)
	assert.Equal(t, []string{"str", "well_id", "speed", "weight_on_bit", "torque"}, rows[0])
}

func TestSplitColumns(t *testing.T) {
	assert.Equal(t, []string{"speed", "torque"}, splitColumns(" speed ,, torque,"))
	assert.Nil(t, splitColumns("  "))
}
