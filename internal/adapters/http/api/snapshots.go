package api

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/mowoo/SLG-Dashboard/internal/domain/types"
	"github.com/mowoo/SLG-Dashboard/pkg/logger"
)

const uploadField = "file"

// uploadResponse lists the outcome of every file of one upload request.
type uploadResponse struct {
	Results []types.UploadResult `json:"results"`
}

// handleStatus handles GET /snapshots.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	const op = "api.snapshot_status"
	st, err := s.deps.Status(r.Context())
	if err != nil {
		s.writeFailure(w, r, op, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// handleUpload handles POST /snapshots with one or more multipart "file" parts.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	const op = "api.upload_snapshots"
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.writeFailure(w, r, op, WrapKind(op, ErrTooLarge, err))
			return
		}
		s.writeFailure(w, r, op, WrapKind(op, ErrBadRequest, err))
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	files := r.MultipartForm.File[uploadField]
	if len(files) == 0 {
		s.writeFailure(w, r, op, WrapKind(op, ErrBadRequest, ErrNoFiles))
		return
	}

	resp := uploadResponse{Results: make([]types.UploadResult, 0, len(files))}
	for _, fh := range files {
		content, err := readPart(fh)
		if err != nil {
			s.logger.Warn(r.Context(), "upload part unreadable", logger.String("file", fh.Filename), logger.Error(err))
			resp.Results = append(resp.Results, types.UploadResult{
				File: fh.Filename, Status: types.UploadRejected, Error: err.Error(),
			})
			continue
		}
		resp.Results = append(resp.Results, s.deps.Upload(r.Context(), fh.Filename, content))
	}
	writeJSON(w, http.StatusOK, resp)
}

func readPart(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("open part: %w", err)
	}
	defer f.Close()
	return io.ReadAll(f)
}
