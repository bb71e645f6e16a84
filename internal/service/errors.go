package service

import "errors"

var (
	// ErrUnauthorized means the bearer token was missing or did not resolve
	// to a user. Nothing has been written.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrInvalidRequest means a required field was absent. Nothing has been
	// written.
	ErrInvalidRequest = errors.New("invalid request")

	// ErrPaymentVerificationFailed means the gateway did not report the
	// transaction as settled. Nothing has been written.
	ErrPaymentVerificationFailed = errors.New("payment verification failed")

	// ErrConfiguration means the gateway secret is absent.
	ErrConfiguration = errors.New("payment verification is not configured")

	// ErrCheckoutInProgress means another finalize call holds the lock for
	// the same user and reference. Safe to retry shortly.
	ErrCheckoutInProgress = errors.New("checkout already in progress for this reference")

	// ErrOrderCreationFailed means the order insert itself failed after the
	// payment was verified. The caller must treat this as "payment captured,
	// order placement failed", not as a payment failure.
	ErrOrderCreationFailed = errors.New("failed to create order")
)
