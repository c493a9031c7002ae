package utils

import "errors"

var ErrorRecordNotFound = errors.New("record not found")

// ErrorEditConflict is returned when a conditional update on a record's
// version column matches zero rows (someone else saved first).
var ErrorEditConflict = errors.New("record was modified by another user")
