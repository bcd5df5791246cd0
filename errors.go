package chaos

import "errors"

// ErrNoProvider is returned by Open when no provider was configured and no
// process default is set.
var ErrNoProvider = errors.New("chaos: no provider configured and no default set")
