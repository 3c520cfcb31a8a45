package server

import (
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/nhle/advisor-tasks/internal/model"
	"github.com/nhle/advisor-tasks/internal/remote"
	"github.com/nhle/advisor-tasks/internal/store"
)

const maxBodySize = 1 << 20 // 1MB

// ExportRequest is the body of POST .../exports.
type ExportRequest struct {
	CustomerID *string `json:"customerId,omitempty"`
}

// ExportResponse carries the download URL of an export.
type ExportResponse struct {
	URL string `json:"url"`
}

func (s *Server) handleSearch(c *gin.Context) {
	q, ok := s.query(c)
	if !ok {
		return
	}
	res, err := s.store.CompanyTaskSearch(c.Request.Context(), c.Param("tenant"), q)
	s.respond(c, res, err)
}

func (s *Server) handleByType(c *gin.Context) {
	q, ok := s.query(c)
	if !ok {
		return
	}
	res, err := s.store.ListCompanyTaskByType(c.Request.Context(), c.Param("tenant"), q)
	s.respond(c, res, err)
}

func (s *Server) handleCountByStatus(c *gin.Context) {
	q, ok := s.query(c)
	if !ok {
		return
	}
	res, err := s.store.CompanyTaskCountByStatus(c.Request.Context(), c.Param("tenant"), q)
	s.respond(c, res, err)
}

func (s *Server) handleCountByCategories(c *gin.Context) {
	q, ok := s.query(c)
	if !ok {
		return
	}
	res, err := s.store.CompanyTaskCountByCategories(c.Request.Context(), c.Param("tenant"), q)
	s.respond(c, res, err)
}

func (s *Server) handleCountByManagers(c *gin.Context) {
	q, ok := s.query(c)
	if !ok {
		return
	}
	res, err := s.store.CompanyTaskCountByManagers(c.Request.Context(), c.Param("tenant"), q)
	s.respond(c, res, err)
}

func (s *Server) handleFetchTask(c *gin.Context) {
	task, err := s.store.FetchSingleTask(c.Request.Context(), c.Param("tenant"), c.Param("id"))
	s.respond(c, task, err)
}

func (s *Server) handleCustomerTasks(c *gin.Context) {
	tasks, err := s.store.ListCustomerTasks(c.Request.Context(), c.Param("tenant"), c.Param("customer"))
	if tasks == nil && err == nil {
		tasks = []model.Task{}
	}
	s.respond(c, tasks, err)
}

func (s *Server) handleCreateTask(c *gin.Context) {
	var in model.TaskInput
	if !s.bind(c, &in) {
		return
	}
	task, err := s.store.CreateTask(c.Request.Context(), c.Param("tenant"), in)
	s.respondStatus(c, http.StatusCreated, task, err)
}

func (s *Server) handleUpdateTask(c *gin.Context) {
	var in model.TaskInput
	if !s.bind(c, &in) {
		return
	}
	task, err := s.store.UpdateTask(c.Request.Context(), c.Param("tenant"), c.Param("id"), in)
	s.respond(c, task, err)
}

func (s *Server) handleCompleteTask(c *gin.Context) {
	task, err := s.store.CompleteTask(c.Request.Context(), c.Param("tenant"), c.Param("id"))
	s.respond(c, task, err)
}

func (s *Server) handleListCategories(c *gin.Context) {
	cats, err := s.store.TaskCategoryList(c.Request.Context(), c.Param("tenant"))
	if cats == nil && err == nil {
		cats = []model.Category{}
	}
	s.respond(c, cats, err)
}

func (s *Server) handleCreateCategory(c *gin.Context) {
	var in model.CategoryInput
	if !s.bind(c, &in) {
		return
	}
	cat, err := s.store.CreateTaskCategory(c.Request.Context(), c.Param("tenant"), in)
	s.respondStatus(c, http.StatusCreated, cat, err)
}

func (s *Server) handleExport(c *gin.Context) {
	var req ExportRequest
	if c.Request.ContentLength != 0 && !s.bind(c, &req) {
		return
	}
	url, err := s.store.ExportTasks(c.Request.Context(), c.Param("tenant"), req.CustomerID)
	s.respond(c, ExportResponse{URL: url}, err)
}

func (s *Server) handleDownload(c *gin.Context) {
	name := filepath.Base(c.Param("name"))
	if name == "." || name == string(filepath.Separator) || !strings.HasSuffix(name, ".csv") {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "export not found"})
		return
	}
	path := filepath.Join(s.exportDir, name)
	if _, err := os.Stat(path); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "export not found"})
		return
	}
	c.FileAttachment(path, name)
}

func (s *Server) query(c *gin.Context) (remote.Query, bool) {
	q, err := remote.DecodeQuery(c.Request.URL.Query())
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
		return remote.Query{}, false
	}
	return q, true
}

func (s *Server) bind(c *gin.Context, v any) bool {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBodySize)
	if err := c.ShouldBindJSON(v); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "invalid request body: " + err.Error()})
		return false
	}
	return true
}

func (s *Server) respond(c *gin.Context, data any, err error) {
	s.respondStatus(c, http.StatusOK, data, err)
}

func (s *Server) respondStatus(c *gin.Context, status int, data any, err error) {
	if err != nil {
		code := StatusCode(err)
		if code >= http.StatusInternalServerError {
			s.log.Warn().Err(err).Str("path", c.FullPath()).Msg("request failed")
		}
		c.JSON(code, gin.H{"success": false, "error": err.Error()})
		return
	}
	c.JSON(status, gin.H{"success": true, "data": data})
}

// StatusCode maps a store error to its HTTP status.
func StatusCode(err error) int {
	var remoteErr *remote.Error
	switch {
	case remote.IsNotFound(err):
		return http.StatusNotFound
	case errors.Is(err, remote.ErrInvalidInput):
		return http.StatusBadRequest
	case store.IsBusyError(err):
		return http.StatusServiceUnavailable
	case errors.As(err, &remoteErr) && remoteErr.Status >= http.StatusBadRequest:
		return remoteErr.Status
	default:
		return http.StatusInternalServerError
	}
}
