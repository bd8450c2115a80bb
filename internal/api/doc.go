// Package api handles incoming HTTP requests, request validation and
// response formatting. Handlers translate HTTP concerns to calls on the
// auth, card, review, tutor and usage services.
package api
