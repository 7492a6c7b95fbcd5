package handler

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/alpacapps/spaces/internal/ctxkeys"
	"github.com/alpacapps/spaces/internal/model"
	"github.com/alpacapps/spaces/internal/service"
	"github.com/alpacapps/spaces/internal/ui"
	"github.com/alpacapps/spaces/internal/validation"
)

type mediaView struct {
	Page       *service.MediaPage
	Filter     model.MediaFilter
	Categories []string
	Tags       []*model.Tag
	NextPage   int
}

type mediaDetailView struct {
	Media      *model.Media
	Categories []string
	Tags       []*model.Tag
	Spaces     []*model.Space
	TagIDs     []string
	SpaceIDs   []string
}

type MediaHandler struct {
	mediaService *service.MediaService
	views        *ui.Views
}

func NewMediaHandler(mediaService *service.MediaService, views *ui.Views) *MediaHandler {
	return &MediaHandler{mediaService: mediaService, views: views}
}

func mediaFilter(r *http.Request) model.MediaFilter {
	q := r.URL.Query()
	return model.MediaFilter{
		Search:   strings.TrimSpace(q.Get("q")),
		Category: q.Get("category"),
		SpaceID:  q.Get("space"),
		TagIDs:   q["tag"],
	}
}

func (h *MediaHandler) render(w http.ResponseWriter, r *http.Request, filter model.MediaFilter, page int) {
	lib, err := h.mediaService.Library(filter, page)
	if err != nil {
		slog.Error("failed to load media", "error", err)
		h.views.Error(w, r, http.StatusInternalServerError, "Failed to load media")
		return
	}

	var tags []*model.Tag
	for _, g := range lib.TagGroups {
		tags = append(tags, g.Tags...)
	}

	view := mediaView{
		Page:       lib,
		Filter:     filter,
		Categories: service.MediaCategories,
		Tags:       tags,
		NextPage:   lib.Page + 1,
	}
	h.views.Page(w, r, "media", "Media", view)
}

func (h *MediaHandler) LibraryPage(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, mediaFilter(r), queryInt(r, "page", 1))
}

func (h *MediaHandler) Upload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxFormMemory); err != nil {
		toastError(w, r, "Could not read the upload")
		return
	}

	files := r.MultipartForm.File["file"]
	if len(files) == 0 {
		fail(w, r, "upload media", service.ErrEmptyUpload)
		return
	}

	actor := ctxkeys.User(r.Context())
	uploaded := 0
	var problems []string
	for _, header := range files {
		data, _, err := readUpload(header, validation.MediaConstraints)
		if err == nil {
			_, err = h.mediaService.Upload(r.Context(), actor, service.UploadInput{
				Filename: header.Filename,
				Data:     data,
				Caption:  r.FormValue("caption"),
				Category: r.FormValue("category"),
				TagIDs:   formList(r, "tag"),
				SpaceIDs: formList(r, "space"),
			})
		}
		if err != nil {
			msg, ok := publicMessage(err)
			if !ok {
				slog.Error("media upload failed", "error", err, "filename", header.Filename)
				msg = "upload failed"
			}
			problems = append(problems, header.Filename+": "+msg)
			continue
		}
		uploaded++
	}

	if uploaded == 0 {
		toastError(w, r, strings.Join(problems, "; "))
		return
	}
	if len(problems) > 0 {
		ui.ToastError(w, r, strings.Join(problems, "; "))
	}
	ui.ToastSuccess(w, r, fmt.Sprintf("%d uploaded", uploaded))
	h.render(w, r, model.MediaFilter{}, 1)
}

func (h *MediaHandler) detail(w http.ResponseWriter, r *http.Request, media *model.Media) {
	tags, err := h.mediaService.Tags()
	if err != nil {
		fail(w, r, "load tags", err)
		return
	}
	spaces, err := h.mediaService.Spaces()
	if err != nil {
		fail(w, r, "load spaces", err)
		return
	}

	view := mediaDetailView{Media: media, Categories: service.MediaCategories, Tags: tags, Spaces: spaces}
	for _, t := range media.Tags {
		view.TagIDs = append(view.TagIDs, t.ID)
	}
	for _, s := range media.Spaces {
		view.SpaceIDs = append(view.SpaceIDs, s.ID)
	}
	h.views.Partial(w, r, "media", "media_detail", view)
}

func (h *MediaHandler) Detail(w http.ResponseWriter, r *http.Request) {
	media, err := h.mediaService.ByID(r.PathValue("id"))
	if err != nil {
		fail(w, r, "load media", err, "media_id", r.PathValue("id"))
		return
	}
	h.detail(w, r, media)
}

func (h *MediaHandler) Update(w http.ResponseWriter, r *http.Request) {
	media, err := h.mediaService.Update(r.PathValue("id"), r.FormValue("caption"), r.FormValue("category"))
	if err != nil {
		fail(w, r, "update media", err, "media_id", r.PathValue("id"))
		return
	}
	ui.ToastSuccess(w, r, "Saved")
	h.detail(w, r, media)
}

func (h *MediaHandler) SetTags(w http.ResponseWriter, r *http.Request) {
	media, err := h.mediaService.SetTags(r.PathValue("id"), formList(r, "tag"))
	if err != nil {
		fail(w, r, "set media tags", err, "media_id", r.PathValue("id"))
		return
	}
	ui.ToastSuccess(w, r, "Tags updated")
	h.detail(w, r, media)
}

func (h *MediaHandler) SetSpaces(w http.ResponseWriter, r *http.Request) {
	media, err := h.mediaService.SetSpaces(r.PathValue("id"), formList(r, "space"))
	if err != nil {
		fail(w, r, "set media spaces", err, "media_id", r.PathValue("id"))
		return
	}
	ui.ToastSuccess(w, r, "Spaces updated")
	h.detail(w, r, media)
}

func (h *MediaHandler) BulkTag(w http.ResponseWriter, r *http.Request) {
	n, err := h.mediaService.BulkTag(formList(r, "id"), r.FormValue("tag_id"))
	if err != nil {
		fail(w, r, "bulk tag media", err)
		return
	}
	ui.ToastSuccess(w, r, fmt.Sprintf("Tagged %d items", n))
	h.render(w, r, model.MediaFilter{}, 1)
}

func (h *MediaHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.mediaService.Delete(r.Context(), r.PathValue("id")); err != nil {
		fail(w, r, "delete media", err, "media_id", r.PathValue("id"))
		return
	}
	ui.ToastSuccess(w, r, "Image deleted")
	h.render(w, r, model.MediaFilter{}, 1)
}

func (h *MediaHandler) SaveTag(w http.ResponseWriter, r *http.Request) {
	tag, err := h.mediaService.SaveTag(service.TagInput{
		ID:    r.FormValue("id"),
		Name:  r.FormValue("name"),
		Group: r.FormValue("group"),
		Color: r.FormValue("color"),
	})
	if err != nil {
		fail(w, r, "save tag", err)
		return
	}
	ui.ToastSuccess(w, r, "Tag "+tag.Name+" saved")
	h.render(w, r, model.MediaFilter{}, 1)
}

func (h *MediaHandler) DeleteTag(w http.ResponseWriter, r *http.Request) {
	if err := h.mediaService.DeleteTag(r.PathValue("id")); err != nil {
		fail(w, r, "delete tag", err, "tag_id", r.PathValue("id"))
		return
	}
	ui.ToastSuccess(w, r, "Tag deleted")
	h.render(w, r, model.MediaFilter{}, 1)
}

func (h *MediaHandler) CreateSpace(w http.ResponseWriter, r *http.Request) {
	space, err := h.mediaService.CreateSpace(r.FormValue("name"))
	if err != nil {
		fail(w, r, "create space", err)
		return
	}
	ui.ToastSuccess(w, r, "Space "+space.Name+" created")
	h.render(w, r, model.MediaFilter{}, 1)
}
