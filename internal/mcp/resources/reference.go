package resources

import (
	"encoding/json"

	"github.com/courserate-sg/server/internal/domain/reviews"
	"github.com/mark3labs/mcp-go/mcp"
)

const semestersResource = "reference://semesters"

// RatingScale describes the bounds every rating field shares.
type RatingScale struct {
	Min    int      `json:"min"`
	Max    int      `json:"max"`
	Fields []string `json:"fields"`
}

type ReferenceData struct {
	// Semesters are listed oldest first within an academic year.
	Semesters []string    `json:"semesters"`
	Ratings   RatingScale `json:"ratings"`
}

// Reference returns the vocabulary a client needs to build a review.
func Reference() ReferenceData {
	return ReferenceData{
		Semesters: append([]string(nil), reviews.Semesters...),
		Ratings: RatingScale{
			Min:    1,
			Max:    5,
			Fields: []string{"overall_rating", "difficulty_rating", "workload_rating"},
		},
	}
}

func SemestersResource() mcp.Resource {
	return mcp.NewResource(
		semestersResource,
		"Semesters and rating scale",
		mcp.WithResourceDescription("Accepted semester labels in chronological order and the rating bounds for reviews"),
		mcp.WithMIMEType(schemaMIMEType),
	)
}

// SemestersReadHandler serves Reference as JSON.
func SemestersReadHandler() readHandler {
	return textHandler(semestersResource, "load reference data", &lazyText{
		load: func() ([]byte, error) { return json.Marshal(Reference()) },
	})
}
