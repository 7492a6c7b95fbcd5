package handler

import (
	"errors"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/alpacapps/spaces/internal/imaging"
	"github.com/alpacapps/spaces/internal/markdown"
	"github.com/alpacapps/spaces/internal/repository"
	"github.com/alpacapps/spaces/internal/service"
	"github.com/alpacapps/spaces/internal/ui"
	"github.com/alpacapps/spaces/internal/validation"
	"github.com/alpacapps/spaces/internal/voice"
)

const (
	maxFormMemory    = 32 << 20
	genericErrorText = "Something went wrong. Please try again."
)

// publicErrors carry messages written for the person using the page.
var publicErrors = []error{
	service.ErrInvalidRole, service.ErrSelfDemote, service.ErrSelfDelete, service.ErrLastAdmin,
	service.ErrUserExists, service.ErrAlreadyInvited, service.ErrInviteNotPending, service.ErrInviteExpired,
	service.ErrInviteEmail, service.ErrInvalidEmail, service.ErrInvalidCredentials, service.ErrPasswordless,
	service.ErrServiceRequired, service.ErrInvalidOrder,
	service.ErrEmptyUpload, service.ErrNoMediaChosen,
	service.ErrInvalidTemperature,
	service.ErrDescriptionTooShort, service.ErrParentNotFound, service.ErrInvalidStatus,
	service.ErrInvalidTransition, service.ErrNotCancellable,
	validation.ErrEmailRequired, validation.ErrEmailTooLong, validation.ErrEmailFormat,
	validation.ErrNameRequired, validation.ErrNameTooLong, validation.ErrColorFormat,
	validation.ErrPasswordShort, validation.ErrPasswordLong, validation.ErrPasswordCommon,
	validation.ErrFileTooLarge, validation.ErrFileType,
	repository.ErrUserNotFound, repository.ErrInvitationNotFound, repository.ErrVaultEntryNotFound,
	repository.ErrMediaNotFound, repository.ErrTagNotFound, repository.ErrDuplicateTag,
	repository.ErrSpaceNotFound, repository.ErrDuplicateSpace,
	repository.ErrAssistantNotFound, repository.ErrCallNotFound, repository.ErrFeatureRequestNotFound,
	markdown.ErrMissingName, imaging.ErrNotImage, imaging.ErrTooLarge, voice.ErrNotConfigured,
	errPromptTooLarge,
}

// publicMessage returns the user-facing text for err, if it has one.
func publicMessage(err error) (string, bool) {
	for _, known := range publicErrors {
		if errors.Is(err, known) {
			return sentence(known.Error()), true
		}
	}
	return "", false
}

func sentence(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}

func isNotFound(err error) bool {
	for _, nf := range []error{
		repository.ErrUserNotFound, repository.ErrInvitationNotFound, repository.ErrVaultEntryNotFound,
		repository.ErrMediaNotFound, repository.ErrAssistantNotFound, repository.ErrCallNotFound,
		repository.ErrFeatureRequestNotFound,
	} {
		if errors.Is(err, nf) {
			return true
		}
	}
	return false
}

// toastError reports a failed mutation without touching the page.
func toastError(w http.ResponseWriter, r *http.Request, msg string) {
	w.Header().Set("HX-Reswap", "none")
	ui.ToastError(w, r, msg)
}

// fail toasts err's public message, or logs it and toasts a generic one.
func fail(w http.ResponseWriter, r *http.Request, action string, err error, attrs ...any) {
	if msg, ok := publicMessage(err); ok {
		slog.Debug(action+" rejected", append([]any{"error", err}, attrs...)...)
		toastError(w, r, msg)
		return
	}
	slog.Error(action+" failed", append([]any{"error", err}, attrs...)...)
	toastError(w, r, genericErrorText)
}

func queryInt(r *http.Request, key string, def int) int {
	n, err := strconv.Atoi(r.URL.Query().Get(key))
	if err != nil || n <= 0 {
		return def
	}
	return n
}

// formList returns the non-blank values submitted for key.
func formList(r *http.Request, key string) []string {
	if err := r.ParseForm(); err != nil {
		return nil
	}
	var out []string
	for _, v := range r.Form[key] {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func formBool(r *http.Request, key string) bool {
	v := r.FormValue(key)
	return v == "1" || v == "on" || v == "true"
}

// readUpload validates an uploaded file against c and reads it whole.
func readUpload(header *multipart.FileHeader, c validation.FileConstraints) ([]byte, string, error) {
	mimeType, err := validation.ValidateFile(header, c)
	if err != nil {
		return nil, "", err
	}

	file, err := header.Open()
	if err != nil {
		return nil, "", err
	}
	defer func() { _ = file.Close() }()

	data, err := io.ReadAll(io.LimitReader(file, c.MaxSize+1))
	if err != nil {
		return nil, "", err
	}
	return data, mimeType, nil
}
