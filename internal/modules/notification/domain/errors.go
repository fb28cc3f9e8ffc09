package domain

import "errors"

var (
	ErrNotificacionNoEncontrada = errors.New("notificacion no encontrada")
	ErrNoAutorizado             = errors.New("el usuario no es dueño de la notificacion")
)
