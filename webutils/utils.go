package webutils

import (
	"encoding/json"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/pkg/errors"
)

// MaxBodySize bounds request bodies read by the helpers.
const MaxBodySize = 256 << 20

func WriteFileHeaders(w http.ResponseWriter, name string, contentType string) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", "inline; filename=\""+name+"\"")
}

func WriteJson(w http.ResponseWriter, data interface{}) {
	WriteJsonStatus(w, http.StatusOK, data)
}

func WriteJsonStatus(w http.ResponseWriter, code int, data interface{}) {
	res, err := json.Marshal(data)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, errors.Wrap(err, "Failed to marshal"))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	WriteResult(w, res)
}

// ReadJson decodes a JSON request body into v.
func ReadJson(r *http.Request, v interface{}) error {
	data, err := io.ReadAll(io.LimitReader(r.Body, MaxBodySize))
	if err != nil {
		return errors.Wrap(err, "Failed to read")
	}
	if err := json.Unmarshal(data, v); err != nil {
		return errors.Wrap(err, "Failed to unmarshal")
	}
	return nil
}

// ReadFormFile returns the multipart file uploaded under formFileKey.
// The caller closes it.
func ReadFormFile(r *http.Request, formFileKey string) (multipart.File, *multipart.FileHeader, error) {
	if strings.ToUpper(r.Method) != "POST" {
		return nil, nil, errors.Errorf("Invalid http method %q", r.Method)
	}
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		return nil, nil, errors.Wrap(err, "Failed to parse form")
	}
	f, header, err := r.FormFile(formFileKey)
	if err != nil {
		return nil, nil, errors.Wrap(err, "Failed to get file")
	}
	return f, header, nil
}

func WriteResult(w http.ResponseWriter, data []byte) {
	_, err := w.Write(data)
	if err != nil {
		log.Printf("[web] Error when writing response: %v", err)
	}
}

func WriteError(w http.ResponseWriter, code int, err error) {
	type jError struct {
		Error string `json:"error"`
	}
	data, merr := json.Marshal(&jError{Error: err.Error()})
	if merr != nil {
		log.Printf("[web] Error marshaling error '%v': %v", err, merr)
		http.Error(w, err.Error(), code)
		return
	}
	log.Printf("[web] HERR %d: %v", code, string(data))
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	WriteResult(w, data)
}
