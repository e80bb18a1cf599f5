package config

import "errors"

// ErrInvalidSetting indicates a setting value of the wrong type or format.
var ErrInvalidSetting = errors.New("invalid setting")
