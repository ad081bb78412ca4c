package biometric

import "context"

type EnrollmentRepository interface {
	// GetEmployeeNumber returns ErrUnresolvedIdentity when the number is not enrolled.
	GetEmployeeNumber(ctx context.Context, biometricNumber int64) (string, error)
}
