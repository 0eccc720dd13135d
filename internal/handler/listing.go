package handler

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/gophermarket/gophermarket/internal/auth"
	"github.com/gophermarket/gophermarket/internal/handler/dto"
	"github.com/gophermarket/gophermarket/internal/service"
)

// Multipart field names used by the web client.
const (
	fieldListingData     = "listingData"
	fieldImages          = "images"
	fieldNewImages       = "newImages"
	fieldDeleteImageURLs = "deleteImageUrls"
)

const (
	defaultMaxMultipartMemory = 8 << 20
)

// ListingHandler handles HTTP requests for listing operations.
type ListingHandler struct {
	svc       *service.ListingService
	maxMemory int64
	logger    *slog.Logger
}

// NewListingHandler creates a new ListingHandler. maxMemory bounds how much of
// a multipart body is held in memory before spilling to temp files.
func NewListingHandler(svc *service.ListingService, maxMemory int64, logger *slog.Logger) *ListingHandler {
	if maxMemory <= 0 {
		maxMemory = defaultMaxMultipartMemory
	}
	return &ListingHandler{
		svc:       svc,
		maxMemory: maxMemory,
		logger:    logger,
	}
}

// List handles GET /api/listings.
func (h *ListingHandler) List(w http.ResponseWriter, r *http.Request) {
	listings, err := h.svc.ListListings(r.Context())
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.ToListingResponses(listings))
}

// ListMine handles GET /api/listings/my.
func (h *ListingHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	id, err := auth.RequireIdentity(r.Context())
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	listings, err := h.svc.ListMyListings(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.ToListingResponses(listings))
}

// Get handles GET /api/listings/{id}.
func (h *ListingHandler) Get(w http.ResponseWriter, r *http.Request) {
	listingID, ok := parseListingID(w, r)
	if !ok {
		return
	}

	listing, err := h.svc.GetListing(r.Context(), listingID)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.ToListingResponse(listing))
}

// Create handles POST /api/listings. It accepts multipart/form-data with a
// listingData JSON field and images files, or a plain JSON body.
func (h *ListingHandler) Create(w http.ResponseWriter, r *http.Request) {
	id, err := auth.RequireIdentity(r.Context())
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	var req dto.CreateListingRequest
	var images []service.PendingImage

	if isMultipart(r) {
		form, err := h.parseMultipart(r)
		if err != nil {
			writeServiceError(w, r, h.logger, err)
			return
		}
		defer func() { _ = form.RemoveAll() }()

		raw := firstValue(form, fieldListingData)
		if raw == "" {
			writeFieldError(w, http.StatusBadRequest, CodeValidationFailed, fieldListingData, "listingData is required.")
			return
		}
		if err := json.Unmarshal([]byte(raw), &req); err != nil {
			writeFieldError(w, http.StatusBadRequest, CodeInvalidRequest, fieldListingData, "listingData is not valid JSON")
			return
		}
		images = pendingImages(form.File[fieldImages])
	} else if err := decodeJSON(r, &req); err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	listing, err := h.svc.CreateListing(r.Context(), id, service.CreateListingInput{
		Title:       req.Title,
		Description: req.Description,
		Price:       req.Price,
		Images:      images,
	})
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusCreated, dto.ToListingResponse(listing))
}

// Update handles PATCH /api/listings/{id}.
func (h *ListingHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := auth.RequireIdentity(r.Context())
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	listingID, ok := parseListingID(w, r)
	if !ok {
		return
	}

	var req dto.UpdateListingRequest
	var input service.UpdateListingInput

	if isMultipart(r) {
		form, err := h.parseMultipart(r)
		if err != nil {
			writeServiceError(w, r, h.logger, err)
			return
		}
		defer func() { _ = form.RemoveAll() }()

		if raw := firstValue(form, fieldListingData); raw != "" {
			if err := json.Unmarshal([]byte(raw), &req); err != nil {
				writeFieldError(w, http.StatusBadRequest, CodeInvalidRequest, fieldListingData, "listingData is not valid JSON")
				return
			}
		}
		input.NewImages = pendingImages(form.File[fieldNewImages])
		input.DeleteImageURLs = form.Value[fieldDeleteImageURLs]
	} else if err := decodeJSON(r, &req); err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	input.Title = req.Title.Ptr()
	input.Description = req.Description.Ptr()
	input.Price = req.Price.Ptr()

	listing, err := h.svc.UpdateListing(r.Context(), id, listingID, input)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ToListingResponse(listing))
}

// Delete handles DELETE /api/listings/{id}.
func (h *ListingHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := auth.RequireIdentity(r.Context())
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	listingID, ok := parseListingID(w, r)
	if !ok {
		return
	}

	if err := h.svc.DeleteListing(r.Context(), id, listingID); err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *ListingHandler) parseMultipart(r *http.Request) (*multipart.Form, error) {
	if err := r.ParseMultipartForm(h.maxMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, err
		}
		return nil, &service.ValidationError{Field: "body", Message: "Malformed multipart form."}
	}
	return r.MultipartForm, nil
}

func parseListingID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	listingID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || listingID <= 0 {
		writeFieldError(w, http.StatusBadRequest, CodeInvalidRequest, "id", "Listing ID must be a positive integer")
		return 0, false
	}
	return listingID, true
}

func isMultipart(r *http.Request) bool {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && mediaType == "multipart/form-data"
}

func firstValue(form *multipart.Form, key string) string {
	if vs := form.Value[key]; len(vs) > 0 {
		return vs[0]
	}
	return ""
}

func decodeJSON(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return err
		}
		if errors.Is(err, io.EOF) {
			return &service.ValidationError{Field: "body", Message: "Request body is required."}
		}
		return &service.ValidationError{Field: "body", Message: "Invalid request body."}
	}
	return nil
}

// pendingImages defers opening each part until the service uploads it.
func pendingImages(headers []*multipart.FileHeader) []service.PendingImage {
	out := make([]service.PendingImage, 0, len(headers))
	for _, fh := range headers {
		fh := fh
		out = append(out, service.PendingImage{
			Filename: fh.Filename,
			Open: func() (io.ReadCloser, error) {
				f, err := fh.Open()
				if err != nil {
					return nil, err
				}
				return f, nil
			},
		})
	}
	return out
}
