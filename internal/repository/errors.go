package repository

import "errors"

var ErrNotFound = errors.New("ключ не найден")
