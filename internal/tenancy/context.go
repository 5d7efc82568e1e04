package tenancy

import "context"

type ctxKey string

const therapistKey ctxKey = "tipul.therapist_id"

// WithTherapistID stores the therapist id in context.
func WithTherapistID(ctx context.Context, therapistID string) context.Context {
	return context.WithValue(ctx, therapistKey, therapistID)
}

// TherapistIDFromContext extracts the therapist id if present.
func TherapistIDFromContext(ctx context.Context) (string, bool) {
	val := ctx.Value(therapistKey)
	if val == nil {
		return "", false
	}
	therapistID, ok := val.(string)
	return therapistID, ok && therapistID != ""
}
