// Package apierr maps domain errors onto HTTP responses.
//
// Every error body has the shape {"code": "...", "message": "..."}; clients
// show the message as-is.
package apierr

import (
	"encoding/json"
	"errors"
	"net/http"
)

type Kind string

const (
	KindValidation Kind = "validation_error"
	KindAuth       Kind = "auth_error"
	KindNotFound   Kind = "not_found"
	KindInternal   Kind = "internal_error"
)

func (k Kind) Status() int {
	switch k {
	case KindValidation:
		return http.StatusBadRequest
	case KindAuth:
		return http.StatusUnauthorized
	case KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// Error is a classified error. Err, when set, is the underlying cause and is
// reachable through errors.Is / errors.As.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return string(e.Kind)
}

func (e *Error) Unwrap() error { return e.Err }

func Validation(msg string) *Error { return &Error{Kind: KindValidation, Message: msg} }

func Auth(msg string) *Error { return &Error{Kind: KindAuth, Message: msg} }

func NotFound(msg string) *Error { return &Error{Kind: KindNotFound, Message: msg} }

// Wrap classifies err under kind, keeping err's text as the message.
func Wrap(kind Kind, err error) *Error {
	return &Error{Kind: kind, Message: err.Error(), Err: err}
}

type body struct {
	Code    Kind   `json:"code"`
	Message string `json:"message"`
}

// From classifies err. Unclassified errors are internal and keep their raw
// message.
func From(err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Wrap(KindInternal, err)
}

// Write sends err as a JSON error response.
func Write(w http.ResponseWriter, err error) {
	e := From(err)
	WriteStatus(w, e.Kind.Status(), e.Kind, e.Error())
}

func WriteStatus(w http.ResponseWriter, status int, kind Kind, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body{Code: kind, Message: msg})
}

// JSON writes v with the given status.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
