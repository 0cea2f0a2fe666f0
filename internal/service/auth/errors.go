package auth

import (
	"fmt"

	"github.com/phrazzld/questboard-api/internal/domain"
)

// Authentication errors. All of them are domain.ErrUnauthenticated.
var (
	// ErrInvalidToken indicates the token format is invalid or the signature doesn't match.
	ErrInvalidToken = fmt.Errorf("%w: invalid authentication token", domain.ErrUnauthenticated)

	// ErrExpiredToken indicates the token has expired.
	ErrExpiredToken = fmt.Errorf("%w: authentication token has expired", domain.ErrUnauthenticated)

	// ErrTokenNotYetValid indicates the token is not yet valid (nbf claim in the future).
	ErrTokenNotYetValid = fmt.Errorf("%w: authentication token not yet valid", domain.ErrUnauthenticated)

	// ErrMissingToken indicates a token was expected but not provided.
	ErrMissingToken = fmt.Errorf("%w: authentication token is missing", domain.ErrUnauthenticated)

	// ErrWrongTokenType indicates an access token was used where a refresh
	// token was expected, or the other way round.
	ErrWrongTokenType = fmt.Errorf("%w: wrong token type", domain.ErrUnauthenticated)

	// ErrInvalidRefreshToken indicates the refresh token is malformed or its signature doesn't match.
	ErrInvalidRefreshToken = fmt.Errorf("%w: invalid refresh token", domain.ErrUnauthenticated)

	// ErrExpiredRefreshToken indicates the refresh token has expired.
	ErrExpiredRefreshToken = fmt.Errorf("%w: refresh token has expired", domain.ErrUnauthenticated)

	// ErrInvalidCredentials indicates a handle/password pair did not match.
	ErrInvalidCredentials = fmt.Errorf("%w: invalid handle or password", domain.ErrUnauthenticated)
)
