// Copyright 2015 Google Inc. All Rights Reserved.

package session

import "errors"

var errInvalidSession = errors.New("session: invalid or unbound session id")
