package restapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"subwaychallenge.org/pathfinder/internal/journey"
	"subwaychallenge.org/pathfinder/internal/models"
)

const maxJourneyBodyBytes = 64 << 10

type journeyRequest struct {
	Legs []journey.Leg `json:"legs" validate:"required,min=1,max=20,dive"`
}

// journeysHandler times a journey the rider has already made, given as an
// ordered list of legs.
func (api *RestAPI) journeysHandler(w http.ResponseWriter, r *http.Request) {
	var req journeyRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJourneyBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		api.validationErrorResponse(w, r, map[string][]string{"body": {fmt.Sprintf("invalid JSON body: %v", err)}})
		return
	}
	if fieldErrors := api.validateRequest(req); fieldErrors != nil {
		api.validationErrorResponse(w, r, fieldErrors)
		return
	}

	ctx := r.Context()
	if err := api.Registry.Load(ctx); err != nil {
		api.serverErrorResponse(w, r, err)
		return
	}

	j, err := api.Planner.Plan(ctx, req.Legs)
	if err != nil {
		api.sendError(w, r, err)
		return
	}

	model, err := newJourneyModel(ctx, j)
	if err != nil {
		api.sendError(w, r, err)
		return
	}
	api.sendResponse(w, r, models.NewEntryResponseWithClock(model, api.Clock))
}

// validateRequest returns field errors keyed by JSON path, or nil.
func (api *RestAPI) validateRequest(req journeyRequest) map[string][]string {
	err := api.validate.Struct(req)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return map[string][]string{"body": {err.Error()}}
	}

	fieldErrors := make(map[string][]string)
	for _, fe := range verrs {
		key := jsonPath(fe)
		fieldErrors[key] = append(fieldErrors[key], describeFieldError(fe))
	}
	return fieldErrors
}

// jsonPath turns "journeyRequest.Legs[0].TripID" into "legs[0].tripId".
func jsonPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.Index(ns, "."); i >= 0 {
		ns = ns[i+1:]
	}
	parts := strings.Split(ns, ".")
	for i, p := range parts {
		name, index, _ := strings.Cut(p, "[")
		name = jsonNames[name]
		if index != "" {
			name += "[" + index
		}
		parts[i] = name
	}
	return strings.Join(parts, ".")
}

var jsonNames = map[string]string{
	"Legs":        "legs",
	"TripID":      "tripId",
	"StartStopID": "startStopId",
	"EndStopID":   "endStopId",
}

func describeFieldError(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		return fmt.Sprintf("must have at least %s entries", fe.Param())
	case "max":
		return fmt.Sprintf("must have at most %s entries", fe.Param())
	default:
		return fmt.Sprintf("failed %q validation", fe.Tag())
	}
}

func newJourneyModel(ctx context.Context, j *journey.Journey) (models.Journey, error) {
	total, err := j.TotalTravelTime(ctx)
	if err != nil {
		return models.Journey{}, err
	}

	out := models.Journey{
		Segments:           make([]models.Segment, 0, j.Len()),
		Transfers:          models.NewTransfers(j.Transfers()),
		TotalTravelMinutes: total,
	}
	for _, s := range j.Segments() {
		seg, err := newSegmentModel(ctx, s)
		if err != nil {
			return models.Journey{}, err
		}
		out.Segments = append(out.Segments, seg)
	}
	return out, nil
}

func newSegmentModel(ctx context.Context, s *journey.Segment) (models.Segment, error) {
	startName, err := s.StartStopName()
	if err != nil {
		return models.Segment{}, err
	}
	endName, err := s.EndStopName()
	if err != nil {
		return models.Segment{}, err
	}
	names, err := s.VisitedStopNames()
	if err != nil {
		return models.Segment{}, err
	}
	board, err := s.BoardingTime(ctx)
	if err != nil {
		return models.Segment{}, err
	}
	alight, err := s.AlightingTime(ctx)
	if err != nil {
		return models.Segment{}, err
	}

	trip := s.Trip()
	return models.Segment{
		TripID:           trip.TripID,
		RouteID:          trip.RouteID,
		Realtime:         s.IsRealtime(),
		StartStopID:      s.Start(),
		StartStopName:    startName,
		EndStopID:        s.End(),
		EndStopName:      endName,
		VisitedStopIDs:   s.VisitedStops(),
		VisitedStopNames: names,
		BoardingTime:     board.UnixMilli(),
		AlightingTime:    alight.UnixMilli(),
	}, nil
}
