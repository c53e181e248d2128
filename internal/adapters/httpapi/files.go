package httpapi

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"path"

	"github.com/gin-gonic/gin"

	"printvault/internal/application"
	"printvault/internal/application/commands"
	"printvault/internal/domain"
)

type uploadResponse struct {
	Success    bool        `json:"success"`
	Message    string      `json:"message"`
	Files      uploadFiles `json:"files"`
	FolderPath string      `json:"folderPath"`
}

type uploadFiles struct {
	Preview  *string                 `json:"preview"`
	StlFiles []commands.UploadedFile `json:"stlFiles"`
}

type messageResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

func formFile(fh *multipart.FileHeader) commands.UploadFile {
	return commands.UploadFile{
		Name:     fh.Filename,
		MIMEType: fh.Header.Get("Content-Type"),
		Size:     fh.Size,
		Open: func() (io.ReadCloser, error) {
			f, err := fh.Open()
			if err != nil {
				return nil, err
			}
			return f, nil
		},
	}
}

func (s *Server) upload(c *gin.Context) {
	limit := int64(s.opts.Upload.MaxFiles+1)*s.opts.Upload.MaxFileSize + formOverhead
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)

	form, err := c.MultipartForm()
	if err != nil {
		var maxBytes *http.MaxBytesError
		if errors.As(err, &maxBytes) {
			abortWithError(c, err)
			return
		}
		abortWithError(c, &application.ValidationError{Field: "form", Message: fmt.Sprintf("invalid multipart form: %v", err)})
		return
	}
	defer form.RemoveAll()

	value := func(key string) string {
		if v := form.Value[key]; len(v) > 0 {
			return v[0]
		}
		return ""
	}

	var preview *commands.UploadFile
	var received int64
	switch previews := form.File["preview"]; len(previews) {
	case 0:
	case 1:
		f := formFile(previews[0])
		preview = &f
		received += f.Size
	default:
		abortWithError(c, &application.ValidationError{Field: "preview", Message: "at most one preview image is allowed"})
		return
	}

	stlFiles := make([]commands.UploadFile, 0, len(form.File["stlFiles"]))
	for _, fh := range form.File["stlFiles"] {
		stlFiles = append(stlFiles, formFile(fh))
		received += fh.Size
	}

	cmd := commands.NewUploadCommand(s.opts.Storage, s.opts.Upload,
		value("allegiance"), value("faction"), value("unit"), preview, stlFiles)
	result, err := cmd.Execute(c.Request.Context())
	if err != nil {
		abortWithError(c, err)
		return
	}
	s.metrics.observeUpload(result.Preview != nil, len(result.StlFiles), received)

	c.JSON(http.StatusOK, uploadResponse{
		Success:    true,
		Message:    result.Message,
		Files:      uploadFiles{Preview: result.Preview, StlFiles: result.StlFiles},
		FolderPath: result.FolderPath,
	})
}

func (s *Server) download(c *gin.Context) {
	cmd := commands.NewDownloadCommand(s.opts.Storage, s.opts.StoredNames,
		c.Param("allegiance"), c.Param("faction"), c.Param("unit"), c.Param("filename"))
	result, err := cmd.Execute(c.Request.Context())
	if err != nil {
		abortWithError(c, err)
		return
	}
	defer result.Body.Close()

	contentType := mime.TypeByExtension(path.Ext(result.FileName))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	c.DataFromReader(http.StatusOK, -1, contentType, result.Body, map[string]string{
		"Content-Disposition": mime.FormatMediaType("attachment", map[string]string{"filename": result.FileName}),
	})
}

func (s *Server) downloadAll(c *gin.Context) {
	scheme := "http"
	if c.Request.TLS != nil || c.GetHeader("X-Forwarded-Proto") == "https" {
		scheme = "https"
	}
	cmd := commands.NewDownloadAllCommand(s.opts.Storage, scheme+"://"+c.Request.Host,
		c.Param("allegiance"), c.Param("faction"), c.Param("unit"))
	result, err := cmd.Execute(c.Request.Context())
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) listFiles(c *gin.Context) {
	cmd := commands.NewListFilesCommand(s.opts.Storage, c.Param("allegiance"), c.Param("faction"), c.Param("unit"))
	result, err := cmd.Execute(c.Request.Context())
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) deleteFile(c *gin.Context) {
	cmd := commands.NewDeleteFileCommand(s.opts.Storage, s.opts.StoredNames,
		c.Param("allegiance"), c.Param("faction"), c.Param("unit"), c.Param("filename"))
	result, err := cmd.Execute(c.Request.Context())
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, messageResponse{Success: true, Message: result.Message})
}

// health reports 200 when the backend is reachable and its base directory
// exists, 503 otherwise. The report is keyed by backend name.
func (s *Server) health(c *gin.Context) {
	result := commands.NewHealthCommand(s.opts.Storage).Execute(c.Request.Context())
	status := http.StatusOK
	if result.Status != domain.HealthOK {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, gin.H{
		"status":              result.Status,
		"storage":             result.Storage.Backend,
		result.Storage.Backend: result.Storage,
	})
}
