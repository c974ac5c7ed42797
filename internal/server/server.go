// Package server is a small local web UI that runs the report pipeline on
// an uploaded workbook in the background and serves the results.
package server

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"well-report/internal/config"
	"well-report/internal/excel"
	"well-report/internal/pipeline"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

//go:embed templates/*.html
var templatesFS embed.FS

const (
	sessionName    = "wellreport"
	sessionJobsKey = "jobs"
	maxSessionJobs = 20
)

type Server struct {
	cfg    *config.Config
	logger *zap.Logger
	jobs   *Store
	engine *gin.Engine
	wg     sync.WaitGroup
}

func New(cfg *config.Config, logger *zap.Logger) *Server {
	s := &Server{
		cfg:    cfg,
		logger: logger.Named("server"),
		jobs:   NewStore(),
	}

	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(s.logger))
	r.MaxMultipartMemory = cfg.Server.MaxUploadMB << 20

	store := cookie.NewStore([]byte(cfg.Server.SessionSecret))
	store.Options(sessions.Options{Path: "/", MaxAge: 7 * 24 * 3600, HttpOnly: true})
	r.Use(sessions.Sessions(sessionName, store))

	r.SetHTMLTemplate(template.Must(template.New("").ParseFS(templatesFS, "templates/*.html")))

	r.GET("/", s.handleIndex)
	r.POST("/run", s.handleRun)
	r.GET("/logs", s.handleLogs)
	r.GET("/status", s.handleStatus)
	r.GET("/jobs", s.handleJobs)
	r.GET("/download/:job_id/:filename", s.handleDownload)
	r.GET("/download-template", s.handleTemplate)

	s.engine = r
	return s
}

func (s *Server) Handler() http.Handler {
	return s.engine
}

// Wait blocks until every started job has finished.
func (s *Server) Wait() {
	s.wg.Wait()
}

// Run serves on the configured address until ctx is cancelled, then shuts
// down and waits for running jobs.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Server.Addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", zap.String("addr", srv.Addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	s.Wait()
	return nil
}

func (s *Server) indexData(extra gin.H) gin.H {
	h := gin.H{
		"TargetWell": s.cfg.Map.TargetWell,
		"Columns":    strings.Join(s.cfg.Report.Columns, ","),
	}
	for k, v := range extra {
		h[k] = v
	}
	return h
}

func (s *Server) handleIndex(c *gin.Context) {
	c.HTML(http.StatusOK, "index.html", s.indexData(nil))
}

func (s *Server) handleRun(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.cfg.Server.MaxUploadMB<<20)

	file, err := c.FormFile("input_file")
	if err != nil {
		c.HTML(http.StatusBadRequest, "index.html", s.indexData(gin.H{"Message": "Please choose a workbook."}))
		return
	}
	if !strings.EqualFold(filepath.Ext(file.Filename), ".xlsx") {
		c.HTML(http.StatusBadRequest, "index.html", s.indexData(gin.H{"Message": "Only .xlsx workbooks are supported."}))
		return
	}

	if err := os.MkdirAll(s.cfg.Server.UploadDir, 0o755); err != nil {
		s.logger.Error("create upload dir", zap.Error(err))
		c.HTML(http.StatusInternalServerError, "index.html", s.indexData(gin.H{"Message": "Upload failed."}))
		return
	}
	inputPath := filepath.Join(s.cfg.Server.UploadDir, fmt.Sprintf("%s_%s", uuid.New().String(), filepath.Base(file.Filename)))
	if err := c.SaveUploadedFile(file, inputPath); err != nil {
		s.logger.Error("save upload", zap.Error(err))
		c.HTML(http.StatusInternalServerError, "index.html", s.indexData(gin.H{"Message": "Upload failed."}))
		return
	}

	job := NewJob()
	s.jobs.Add(job)
	s.remember(c, job.ID)

	opts := pipeline.Options{
		DataPath:    inputPath,
		TargetWell:  strings.TrimSpace(c.PostForm("target_well")),
		Columns:     splitColumns(c.PostForm("columns")),
		ExportDir:   filepath.Join(s.cfg.Paths.ExportDir, "jobs", job.ID),
		Lineplot:    c.PostForm("lineplot") != "",
		Coordinates: true,
	}
	if opts.Lineplot {
		opts.SpeedPath = inputPath
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.processJob(job, opts)
	}()

	c.HTML(http.StatusOK, "index.html", s.indexData(gin.H{
		"JobID":   job.ID,
		"Message": "Report generation started...",
	}))
}

func splitColumns(raw string) []string {
	var out []string
	for _, c := range strings.Split(raw, ",") {
		if c = strings.TrimSpace(c); c != "" {
			out = append(out, c)
		}
	}
	return out
}

func (s *Server) processJob(job *Job, opts pipeline.Options) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("job panicked", zap.String("job_id", job.ID), zap.Any("panic", r))
			job.Fail(fmt.Sprintf("Panic: %v", r))
		}
	}()

	job.Log(fmt.Sprintf("Processing workbook: %s", filepath.Base(opts.DataPath)))

	p := pipeline.New(s.cfg, s.logger.With(zap.String("job_id", job.ID)), io.Discard)
	start := time.Now()
	res, err := p.Run(opts, job.SetProgress)
	if err != nil {
		s.logger.Warn("job failed", zap.String("job_id", job.ID), zap.Error(err))
		job.Fail(err.Error())
		return
	}

	files := make([]string, 0, 4)
	for _, f := range res.Files() {
		files = append(files, filepath.Base(f))
	}
	job.Log(fmt.Sprintf("Done in %s", time.Since(start).Round(time.Millisecond)))
	job.Finish(&JobResult{
		Wells: res.Wells,
		Rows:  res.Rows,
		Dir:   opts.ExportDir,
		Files: files,
	})
	s.logger.Info("job finished", zap.String("job_id", job.ID), zap.Strings("files", files))
}

func (s *Server) handleLogs(c *gin.Context) {
	job := s.jobs.Get(c.Query("job_id"))
	if job == nil {
		c.JSON(http.StatusNotFound, gin.H{"ok": false, "error": "Job not found"})
		return
	}
	snap := job.Snapshot()
	c.JSON(http.StatusOK, gin.H{
		"ok":       true,
		"logs":     snap.Logs,
		"status":   snap.Status,
		"progress": snap.Progress,
	})
}

func (s *Server) handleStatus(c *gin.Context) {
	job := s.jobs.Get(c.Query("job_id"))
	if job == nil {
		c.JSON(http.StatusNotFound, gin.H{"ok": false, "error": "Job not found"})
		return
	}
	snap := job.Snapshot()
	res := gin.H{
		"ok":     true,
		"status": snap.Status,
		"error":  snap.Error,
	}
	if snap.Result != nil {
		res["result"] = snap.Result
	}
	c.JSON(http.StatusOK, res)
}

func (s *Server) handleJobs(c *gin.Context) {
	list := make([]Snapshot, 0)
	for _, id := range s.sessionJobs(c) {
		if job := s.jobs.Get(id); job != nil {
			snap := job.Snapshot()
			snap.Logs = nil
			list = append(list, snap)
		}
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "jobs": list})
}

func (s *Server) handleDownload(c *gin.Context) {
	job := s.jobs.Get(c.Param("job_id"))
	if job == nil {
		c.String(http.StatusNotFound, "Job not found")
		return
	}
	name := c.Param("filename")
	path, ok := job.FilePath(name)
	if !ok {
		c.String(http.StatusNotFound, "File not found")
		return
	}
	c.FileAttachment(path, name)
}

func (s *Server) handleTemplate(c *gin.Context) {
	headers := []string{s.cfg.Paths.IndexColumn, s.cfg.Map.WellIDField}
	for _, col := range s.cfg.Report.Columns {
		if col != headers[0] && col != headers[1] {
			headers = append(headers, col)
		}
	}

	c.Header("Content-Disposition", `attachment; filename="template.xlsx"`)
	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Status(http.StatusOK)
	if err := excel.WriteTemplate(c.Writer, headers); err != nil {
		s.logger.Error("write template", zap.Error(err))
	}
}

func (s *Server) sessionJobs(c *gin.Context) []string {
	raw, _ := sessions.Default(c).Get(sessionJobsKey).(string)
	if raw == "" {
		return nil
	}
	return strings.Split(raw, ",")
}

// remember records a job id in the browser session, newest last.
func (s *Server) remember(c *gin.Context, id string) {
	ids := append(s.sessionJobs(c), id)
	if len(ids) > maxSessionJobs {
		ids = ids[len(ids)-maxSessionJobs:]
	}
	session := sessions.Default(c)
	session.Set(sessionJobsKey, strings.Join(ids, ","))
	if err := session.Save(); err != nil {
		s.logger.Warn("save session", zap.Error(err))
	}
}

func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debug("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)))
	}
}
