// Package errs defines the application's error types.
//
// Domain errors (MissingInformation, InvalidTarget, CannotRemoveInfo,
// DuplicateInformation, InvalidColumn) are raised by the species service.
// HTTPError is the shape every error takes on its way out of the API,
// so clients receive meaningful, actionable, and consistent messages.
package errs
