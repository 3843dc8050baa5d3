package controllers

import (
	"context"
	"errors"
	"io"
	"log"
	"mime/multipart"
	"net/http"

	"github.com/gorilla/csrf"
	"github.com/rahul4469/visionai/internal/middleware"
	"github.com/rahul4469/visionai/internal/models"
	"github.com/rahul4469/visionai/internal/views"
)

// User-facing messages
const (
	MsgMissingCredentials = "API Error: Missing credentials."
	MsgAnalysisFailed     = "Analysis failed. Please try again."
	MsgUndecodableImage   = "Could not read that image. Please upload a JPG or PNG."
	MsgStaleCapture       = "That photo was already analyzed. Take or choose a new one."
	MsgNoPhoto            = "Take a photo or choose one from your gallery first."
	MsgPhotoTooLarge      = "That photo is too large. Please choose a smaller one."
)

// Form fields for the two capture tabs. Gallery wins if both are sent.
const (
	FieldCameraPhoto  = "camera_photo"
	FieldGalleryPhoto = "gallery_photo"
	FieldCaptureToken = "capture_token"
)

// MealAnalyzer turns an uploaded photo into a nutrition record.
type MealAnalyzer interface {
	AnalyzePhoto(ctx context.Context, photo io.Reader) (models.NutritionRecord, error)
}

// AnalyzeController drives the Input and Results screens.
type AnalyzeController struct {
	sessionService *models.SessionService
	analyzer       MealAnalyzer
	templates      AnalyzeTemplates
	maxUploadBytes int64
	isDevelopment  bool
}

// AnalyzeTemplates holds the templates for the two screens.
type AnalyzeTemplates struct {
	Input   *views.Template
	Results *views.Template
}

// NewAnalyzeController creates a new AnalyzeController.
func NewAnalyzeController(
	sessionService *models.SessionService,
	analyzer MealAnalyzer,
	templates AnalyzeTemplates,
	maxUploadBytes int64,
	isDevelopment bool,
) *AnalyzeController {
	return &AnalyzeController{
		sessionService: sessionService,
		analyzer:       analyzer,
		templates:      templates,
		maxUploadBytes: maxUploadBytes,
		isDevelopment:  isDevelopment,
	}
}

// InputData holds data for the capture form template.
type InputData struct {
	CaptureToken string
}

// ResultsData holds data for the results card template.
type ResultsData struct {
	Record *models.NutritionRecord
}

// GetHome renders whichever screen the session is on.
func (c *AnalyzeController) GetHome(w http.ResponseWriter, r *http.Request) {
	token := middleware.SessionToken(r)

	state, err := c.sessionService.Update(token, models.Settle)
	if err != nil {
		log.Printf("Failed to load session state: %v", err)
		http.Error(w, "Session unavailable, please reload", http.StatusInternalServerError)
		return
	}

	data := &views.TemplateData{
		Title:         "VisionAI",
		CSRFToken:     csrf.Token(r),
		Error:         state.Error,
		IsDevelopment: c.isDevelopment,
	}

	switch state.Screen {
	case models.ScreenResults:
		data.Data = ResultsData{Record: state.Record}
		c.templates.Results.ExecuteHTTP(w, r, data)
	default:
		data.Data = InputData{CaptureToken: state.CaptureToken}
		c.templates.Input.ExecuteHTTP(w, r, data)
	}

	if _, err := c.sessionService.Update(token, func(s models.ViewState) models.ViewState {
		return models.Transition(s, models.Rendered())
	}); err != nil {
		log.Printf("Failed to mark session rendered: %v", err)
	}
}

// PostAnalyze handles a camera capture or gallery upload.
func (c *AnalyzeController) PostAnalyze(w http.ResponseWriter, r *http.Request) {
	token := middleware.SessionToken(r)

	r.Body = http.MaxBytesReader(w, r.Body, c.maxUploadBytes)
	if err := r.ParseMultipartForm(c.maxUploadBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.fail(w, r, token, MsgPhotoTooLarge)
			return
		}
		c.fail(w, r, token, MsgNoPhoto)
		return
	}
	defer r.MultipartForm.RemoveAll()

	// Begin checks the capture token and claims the session in one step.
	// On Results every token is stale and fail leaves the screen alone.
	if err := c.sessionService.Begin(token, r.FormValue(FieldCaptureToken)); err != nil {
		switch {
		case errors.Is(err, models.ErrAnalysisInFlight):
			http.Error(w, "An analysis is already running", http.StatusConflict)
		case errors.Is(err, models.ErrStaleCapture):
			log.Printf("Rejected stale capture: %v", err)
			c.fail(w, r, token, MsgStaleCapture)
		default:
			http.Redirect(w, r, "/", http.StatusSeeOther)
		}
		return
	}
	defer c.sessionService.End(token)

	photo, err := pickPhoto(r)
	if err != nil {
		c.fail(w, r, token, MsgNoPhoto)
		return
	}
	defer photo.Close()

	record, err := c.analyzer.AnalyzePhoto(r.Context(), photo)
	if err != nil {
		log.Printf("Analysis failed: %v", err)
		c.fail(w, r, token, UserMessage(err))
		return
	}
	log.Printf("Analysis completed: %q, score %d/100, %d kcal", record.Name, record.HealthScore, record.Calories)

	if _, err := c.sessionService.Update(token, func(s models.ViewState) models.ViewState {
		return models.Transition(s, models.Succeeded(record))
	}); err != nil {
		log.Printf("Failed to store analysis result: %v", err)
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// RejectTooLarge answers an upload that went over the body limit.
func (c *AnalyzeController) RejectTooLarge(w http.ResponseWriter, r *http.Request) {
	log.Printf("Rejected upload over %d bytes", c.maxUploadBytes)
	c.fail(w, r, middleware.SessionToken(r), MsgPhotoTooLarge)
}

// PostReset handles "New analysis": back to Input with a fresh capture token.
func (c *AnalyzeController) PostReset(w http.ResponseWriter, r *http.Request) {
	token := middleware.SessionToken(r)

	captureToken, err := models.GenerateToken(models.CaptureTokenLength)
	if err != nil {
		log.Printf("Failed to generate capture token: %v", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	if _, err := c.sessionService.Update(token, func(s models.ViewState) models.ViewState {
		return models.Transition(s, models.Reset(captureToken))
	}); err != nil {
		log.Printf("Failed to reset session: %v", err)
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// fail keeps the session on Input with msg flashed on the next render.
func (c *AnalyzeController) fail(w http.ResponseWriter, r *http.Request, token, msg string) {
	if _, err := c.sessionService.Update(token, func(s models.ViewState) models.ViewState {
		return models.Transition(s, models.Failed(msg))
	}); err != nil {
		log.Printf("Failed to record analysis failure: %v", err)
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// UserMessage maps an analysis error onto what the user is shown.
func UserMessage(err error) string {
	var configErr *models.ConfigError
	switch {
	case errors.As(err, &configErr):
		return MsgMissingCredentials
	case errors.Is(err, models.ErrUndecodableImage):
		return MsgUndecodableImage
	case errors.Is(err, models.ErrImageTooLarge):
		return MsgPhotoTooLarge
	default:
		return MsgAnalysisFailed
	}
}

func pickPhoto(r *http.Request) (multipart.File, error) {
	for _, field := range []string{FieldGalleryPhoto, FieldCameraPhoto} {
		file, header, err := r.FormFile(field)
		if err != nil {
			continue
		}
		if header.Size == 0 {
			file.Close()
			continue
		}
		return file, nil
	}
	return nil, http.ErrMissingFile
}
