package service

import "errors"

// Sentinel errors for the failure modes callers branch on. Everything
// else is wrapped transport/store errors.
var (
	// ErrNotAuthenticated: the operation requires an ambient principal
	// and none was supplied.
	ErrNotAuthenticated = errors.New("not authenticated")

	// ErrInvalidScope: an audited action carried neither an agency nor
	// a sub-account target. Fatal to the calling write.
	ErrInvalidScope = errors.New("action must be scoped to an agency or sub-account")

	// ErrUserNotResolvable: the operation targets an application user
	// that does not exist. The activity recorder skips the entry
	// instead; write paths surface it.
	ErrUserNotResolvable = errors.New("acting user could not be resolved")

	// ErrMetadataUpdateFailed: the identity provider rejected the role
	// metadata push. Local state is already committed; the operation is
	// safe to retry.
	ErrMetadataUpdateFailed = errors.New("identity metadata update failed")

	// ErrNoAgencyOwner: a sub-account cannot be provisioned because the
	// owning agency has no admin user to grant initial access to.
	ErrNoAgencyOwner = errors.New("no agency owner found")

	// ErrInvitationExists: a pending invitation for the email is
	// already outstanding.
	ErrInvitationExists = errors.New("a pending invitation already exists for this email")
)
