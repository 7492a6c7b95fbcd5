package ui

import (
	"context"
	"fmt"
	"io"
	"net/http"

	twmerge "github.com/Oudwins/tailwind-merge-go"
	"github.com/a-h/templ"
)

type Variant string

const (
	VariantSuccess Variant = "success"
	VariantError   Variant = "error"
	VariantInfo    Variant = "info"
)

const toastTarget = "beforeend:#toast-container"

const toastBase = "toast pointer-events-auto flex w-80 items-start gap-3 rounded-md border bg-white p-3 text-sm shadow-lg"

var toastVariants = map[Variant]string{
	VariantSuccess: "border-green-300 bg-green-50 text-green-900",
	VariantError:   "border-red-300 bg-red-50 text-red-900",
	VariantInfo:    "border-slate-300 text-slate-900",
}

type ToastProps struct {
	Title       string
	Description string
	Variant     Variant
	Class       string
}

// Toast is a dismissible notification. Class overrides the variant's
// Tailwind classes where they conflict.
func Toast(p ToastProps) templ.Component {
	class := twmerge.Merge(toastBase, toastVariants[p.Variant], p.Class)
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		_, err := fmt.Fprintf(w,
			`<div class="%s" role="status" data-variant="%s" hx-on:click="this.remove()"><div><p class="font-semibold">%s</p><p>%s</p></div></div>`,
			templ.EscapeString(class),
			templ.EscapeString(string(p.Variant)),
			templ.EscapeString(p.Title),
			templ.EscapeString(p.Description),
		)
		return err
	})
}

func ToastSuccess(w http.ResponseWriter, r *http.Request, description string) {
	RenderOOB(w, r, Toast(ToastProps{Title: "Success", Description: description, Variant: VariantSuccess}), toastTarget)
}

func ToastError(w http.ResponseWriter, r *http.Request, description string) {
	RenderOOB(w, r, Toast(ToastProps{Title: "Error", Description: description, Variant: VariantError}), toastTarget)
}

func ToastInfo(w http.ResponseWriter, r *http.Request, description string) {
	RenderOOB(w, r, Toast(ToastProps{Title: "Info", Description: description, Variant: VariantInfo}), toastTarget)
}
