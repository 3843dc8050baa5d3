package services

import (
	"context"
	"fmt"
	"io"
	"log"

	"github.com/rahul4469/visionai/internal/imagecodec"
	"github.com/rahul4469/visionai/internal/models"
)

// ImageAnalyzer returns the raw JSON object a model produced for an image.
type ImageAnalyzer interface {
	Analyze(ctx context.Context, encodedImage string) (map[string]any, error)
}

// MealAnalyzer runs the full pipeline: re-encode, infer, normalize.
type MealAnalyzer struct {
	inference ImageAnalyzer
}

func NewMealAnalyzer(inference ImageAnalyzer) *MealAnalyzer {
	return &MealAnalyzer{inference: inference}
}

// AnalyzePhoto decodes the uploaded photo and returns its nutrition estimate.
func (ma *MealAnalyzer) AnalyzePhoto(ctx context.Context, photo io.Reader) (models.NutritionRecord, error) {
	encoded, format, err := imagecodec.EncodeReader(photo)
	if err != nil {
		return models.NutritionRecord{}, err
	}
	log.Printf("Encoded %s upload as PNG (%d base64 bytes)", format, len(encoded))

	raw, err := ma.inference.Analyze(ctx, encoded)
	if err != nil {
		return models.NutritionRecord{}, fmt.Errorf("analyze photo: %w", err)
	}

	return models.Normalize(raw), nil
}
