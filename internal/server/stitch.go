package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"

	pdfstitch "github.com/alnah/go-pdfstitch"
	"github.com/alnah/go-pdfstitch/internal/fetch"
	"github.com/alnah/go-pdfstitch/internal/logger"
	"github.com/alnah/go-pdfstitch/internal/upload"
)

// Stages reported in addition to the pipeline stages.
const (
	stageRequest = "request"
	stageFetch   = "fetch"
	stageUpload  = "upload"
)

// multipartMemory is held in memory before spilling parts to disk.
const multipartMemory = 32 << 20

// stitchRequest is the JSON body of POST /stitch. Multipart requests carry
// the same fields as form values.
type stitchRequest struct {
	PDFURL        string `json:"pdfUrl"`
	Format        string `json:"format"`
	ResolutionDPI int    `json:"resolutionDPI"`
	OutputQuality int    `json:"outputQuality"`
	ResizeMode    string `json:"resizeMode"`
}

type stitchResponse struct {
	Success      bool   `json:"success"`
	ImageURL     string `json:"imageUrl"`
	OptimizedURL string `json:"optimizedUrl,omitempty"`
	Width        int    `json:"width"`
	Height       int    `json:"height"`
	Pages        int    `json:"pages"`
	Engine       string `json:"engine,omitempty"`
}

type errorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Stage   string `json:"stage,omitempty"`
	Details string `json:"details,omitempty"`
}

// requestError is a client mistake answered with 400.
type requestError struct {
	msg string
}

func (e *requestError) Error() string { return e.msg }

func (s *Server) stitchHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), s.cfg.RequestTimeout)
	defer cancel()

	req, doc, err := s.parseRequest(w, r)
	if err != nil {
		writeFailure(w, stageRequest, err)
		return
	}

	if doc == nil {
		doc, err = s.fetcher.Fetch(ctx, req.PDFURL)
		if err != nil {
			writeFailure(w, stageFetch, err)
			return
		}
	}
	if err := s.checkKind(doc); err != nil {
		writeFailure(w, stageRequest, err)
		return
	}

	id := uuid.NewString()
	res, err := s.stitcher.StitchDocument(ctx, pdfstitch.Input{
		Data:       doc.Data,
		Name:       doc.Name,
		OutputPath: filepath.Join(s.cfg.WorkDir, "stitched-"+id),
		Options: &pdfstitch.Options{
			Format:        pdfstitch.Format(req.Format),
			ResolutionDPI: req.ResolutionDPI,
			OutputQuality: req.OutputQuality,
			ResizeMode:    pdfstitch.ResizeMode(req.ResizeMode),
		},
	})
	if err != nil {
		writeFailure(w, string(pdfstitch.StageOf(err)), err)
		return
	}
	defer func() {
		if err := os.Remove(res.ImagePath); err != nil && !errors.Is(err, os.ErrNotExist) {
			logger.Warn("removing %s: %v", res.ImagePath, err)
		}
	}()

	imageURL, err := s.uploader.Upload(ctx, res.ImagePath, filepath.Base(res.ImagePath))
	if err != nil {
		writeFailure(w, stageUpload, err)
		return
	}

	optimizedURL := s.uploadOptimized(ctx, res.ImagePath, imageURL)

	logger.Info("stitched %s: %d page(s), %dx%d, %s", doc.Name, res.Pages, res.Width, res.Height, imageURL)
	writeJSON(w, http.StatusOK, stitchResponse{
		Success:      true,
		ImageURL:     imageURL,
		OptimizedURL: optimizedURL,
		Width:        res.Width,
		Height:       res.Height,
		Pages:        res.Pages,
		Engine:       res.Engine,
	})
}

// uploadOptimized publishes the web-quality variant of imagePath. A
// failure here only drops optimizedUrl from the response.
func (s *Server) uploadOptimized(ctx context.Context, imagePath, imageURL string) string {
	variant, err := optimizedVariant(imagePath)
	if err != nil {
		logger.Warn("optimizing %s: %v", filepath.Base(imagePath), err)
		return ""
	}
	if variant == "" {
		return imageURL
	}
	defer func() {
		if err := os.Remove(variant); err != nil && !errors.Is(err, os.ErrNotExist) {
			logger.Warn("removing %s: %v", variant, err)
		}
	}()

	u, err := s.uploader.Upload(ctx, variant, filepath.Base(variant))
	if err != nil {
		logger.Warn("uploading %s: %v", filepath.Base(variant), err)
		return ""
	}
	return u
}

// checkKind refuses sources other than PDF unless AllowNonPDF is set.
// Markdown and HTML are paginated by a browser, which must not see
// documents supplied by arbitrary callers.
func (s *Server) checkKind(doc *fetch.Document) error {
	if s.cfg.AllowNonPDF {
		return nil
	}
	head := doc.Data[:min(len(doc.Data), 512)]
	kind, err := pdfstitch.DetectKind(doc.Name, head)
	if err != nil {
		return err
	}
	if kind != pdfstitch.KindPDF {
		return fmt.Errorf("%w: %s is %s, only PDF is accepted", pdfstitch.ErrUnsupportedSource, doc.Name, kind)
	}
	return nil
}

// parseRequest reads a JSON or multipart body. A multipart upload returns
// the document directly; otherwise the caller fetches PDFURL.
func (s *Server) parseRequest(w http.ResponseWriter, r *http.Request) (stitchRequest, *fetch.Document, error) {
	var req stitchRequest

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "multipart/form-data" {
		r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes)
		if err := r.ParseMultipartForm(multipartMemory); err != nil {
			return req, nil, bodyError(err)
		}
		defer func() { _ = r.MultipartForm.RemoveAll() }()

		var err error
		if req, err = formRequest(r); err != nil {
			return req, nil, err
		}

		file, header, err := r.FormFile("document")
		if errors.Is(err, http.ErrMissingFile) {
			if req.PDFURL == "" {
				return req, nil, &requestError{msg: "No PDF URL provided"}
			}
			return req, nil, nil
		}
		if err != nil {
			return req, nil, bodyError(err)
		}
		defer file.Close()

		data, err := io.ReadAll(file)
		if err != nil {
			return req, nil, bodyError(err)
		}
		return req, &fetch.Document{Name: header.Filename, Data: data}, nil
	}

	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBytes))
	if err := dec.Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		return req, nil, bodyError(err)
	}
	if strings.TrimSpace(req.PDFURL) == "" {
		return req, nil, &requestError{msg: "No PDF URL provided"}
	}
	return req, nil, nil
}

func formRequest(r *http.Request) (stitchRequest, error) {
	req := stitchRequest{
		PDFURL:     r.FormValue("pdfUrl"),
		Format:     r.FormValue("format"),
		ResizeMode: r.FormValue("resizeMode"),
	}
	var err error
	if req.ResolutionDPI, err = formInt(r, "resolutionDPI"); err != nil {
		return req, err
	}
	if req.OutputQuality, err = formInt(r, "outputQuality"); err != nil {
		return req, err
	}
	return req, nil
}

func formInt(r *http.Request, key string) (int, error) {
	v := strings.TrimSpace(r.FormValue(key))
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, &requestError{msg: fmt.Sprintf("%s must be an integer", key)}
	}
	return n, nil
}

func bodyError(err error) error {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return fmt.Errorf("%w: request body over %d bytes", fetch.ErrTooLarge, tooLarge.Limit)
	}
	return &requestError{msg: "malformed request: " + err.Error()}
}

// statusFor maps a failure to its HTTP status and public message.
func statusFor(err error) (int, string) {
	var reqErr *requestError
	switch {
	case errors.As(err, &reqErr):
		return http.StatusBadRequest, reqErr.msg
	case errors.Is(err, fetch.ErrTooLarge):
		return http.StatusRequestEntityTooLarge, "Document too large"
	case errors.Is(err, fetch.ErrInvalidURL):
		return http.StatusBadRequest, "Invalid PDF URL"
	case errors.Is(err, fetch.ErrFetch):
		return http.StatusBadGateway, "Download failed"
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "Processing timed out"
	case errors.Is(err, pdfstitch.ErrUnsupportedSource):
		return http.StatusBadRequest, "Unsupported document type"
	case errors.Is(err, pdfstitch.ErrInput):
		return http.StatusBadRequest, "Invalid document"
	case errors.Is(err, pdfstitch.ErrEmptyDocument),
		errors.Is(err, pdfstitch.ErrCorruptPage),
		errors.Is(err, pdfstitch.ErrCanvasTooLarge):
		return http.StatusUnprocessableEntity, "Processing failed"
	case errors.Is(err, upload.ErrUpload):
		return http.StatusBadGateway, "Upload failed"
	}
	return http.StatusInternalServerError, "Processing failed"
}

func writeFailure(w http.ResponseWriter, stage string, err error) {
	status, msg := statusFor(err)
	if status >= http.StatusInternalServerError {
		logger.Error("%s failed: %v", stage, err)
	} else {
		logger.Warn("%s rejected: %v", stage, err)
	}
	writeJSON(w, status, errorResponse{
		Success: false,
		Error:   msg,
		Stage:   stage,
		Details: err.Error(),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Warn("writing response: %v", err)
	}
}
