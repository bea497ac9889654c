package service

import (
	"errors"
	"fmt"
)

var (
	ErrNotAuthenticated   = errors.New("требуется аутентификация")
	ErrValidation         = errors.New("некорректные данные")
	ErrProfileRequired    = errors.New("сначала заполните профиль")
	ErrInvalidCredentials = errors.New("неверный email или пароль")
)

func validationError(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}
