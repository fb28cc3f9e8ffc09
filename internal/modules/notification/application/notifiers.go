package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redibo/backend/internal/modules/notification/domain"
	rental "github.com/redibo/backend/internal/modules/rental/domain"
)

// Domain notifiers: one per triggering business event. Each one guards the
// triggering condition, skips when an active unread duplicate already
// covers the event, composes the message from the related entities and
// delegates to CrearNotificacion. They return (false, nil) for
// "nothing to do" and reserve errors for infrastructure failure.

func referencia(id uuid.UUID, tipo domain.TipoEntidad) (*uuid.UUID, *string) {
	t := string(tipo)
	return &id, &t
}

// debeOmitir decides the skip: an active unread duplicate means the event
// is already surfaced. A read duplicate does not block, so a genuine
// re-trigger resets the row to unread through the upsert path.
func (s *NotificacionService) debeOmitir(ctx context.Context, usuarioID, entidadID uuid.UUID, tipo domain.TipoNotificacion) (bool, error) {
	existente, err := s.repo.FindActiveDuplicate(ctx, usuarioID, entidadID, tipo)
	if err != nil {
		return false, err
	}
	return existente != nil && !existente.Leido, nil
}

// NotificarRentaConcluida tells the customer their rental time is over.
func (s *NotificacionService) NotificarRentaConcluida(ctx context.Context, rentaID uuid.UUID) (bool, error) {
	detalle, err := s.reader.GetRentaDetalle(ctx, rentaID)
	if errors.Is(err, rental.ErrRentaNoEncontrada) {
		s.logger.Warn("renta inexistente al notificar conclusion", "renta", rentaID)
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if !detalle.Renta.FechaFin.Before(time.Now()) {
		return false, nil
	}

	if omitir, err := s.debeOmitir(ctx, detalle.Cliente.ID, rentaID, domain.TipoAlquilerFinalizado); omitir || err != nil {
		return false, err
	}

	mensaje := fmt.Sprintf(
		"Se le informa que su renta del vehículo %s %s con placa %s ha concluido, muchas gracias por usar nuestro servicio de renta.\nAtte: REDIBO",
		detalle.Auto.Marca, detalle.Auto.Modelo, detalle.Auto.Placa)

	entidadID, tipoEntidad := referencia(rentaID, domain.EntidadRenta)
	_, err = s.CrearNotificacion(ctx, domain.CrearNotificacionDTO{
		UsuarioID:   detalle.Cliente.ID,
		Titulo:      "Tiempo de Renta Concluido",
		Mensaje:     mensaje,
		Tipo:        domain.TipoAlquilerFinalizado,
		Prioridad:   domain.PrioridadMedia,
		EntidadID:   entidadID,
		TipoEntidad: tipoEntidad,
	})
	return err == nil, err
}

// NotificarRentaCancelada tells the vehicle owner a rental was cancelled.
func (s *NotificacionService) NotificarRentaCancelada(ctx context.Context, rentaID uuid.UUID) (bool, error) {
	detalle, err := s.reader.GetRentaDetalle(ctx, rentaID)
	if errors.Is(err, rental.ErrRentaNoEncontrada) {
		s.logger.Warn("renta inexistente al notificar cancelacion", "renta", rentaID)
		return false, nil
	}
	if err != nil {
		return false, err
	}

	if omitir, err := s.debeOmitir(ctx, detalle.Propietario.ID, rentaID, domain.TipoReservaCancelada); omitir || err != nil {
		return false, err
	}

	mensaje := fmt.Sprintf(
		"Se le informa que la renta del vehículo %s (%s, placa %s) ha sido cancelada.\nAtte: REDIBO",
		detalle.Auto.Modelo, detalle.Auto.Marca, detalle.Auto.Placa)

	entidadID, tipoEntidad := referencia(rentaID, domain.EntidadRenta)
	_, err = s.CrearNotificacion(ctx, domain.CrearNotificacionDTO{
		UsuarioID:   detalle.Propietario.ID,
		Titulo:      "Renta Cancelada",
		Mensaje:     mensaje,
		Tipo:        domain.TipoReservaCancelada,
		Prioridad:   domain.PrioridadAlta,
		EntidadID:   entidadID,
		TipoEntidad: tipoEntidad,
	})
	return err == nil, err
}

// NotificarNuevaCalificacion tells the vehicle owner about a new rating.
// The rating flow hands over the renta id, not the rating id.
func (s *NotificacionService) NotificarNuevaCalificacion(ctx context.Context, rentaID uuid.UUID) (bool, error) {
	detalle, err := s.reader.GetCalificacionPorRenta(ctx, rentaID)
	if errors.Is(err, rental.ErrCalificacionNoEncontrada) {
		s.logger.Warn("no existe calificacion para la renta", "renta", rentaID)
		return false, nil
	}
	if err != nil {
		return false, err
	}

	if omitir, err := s.debeOmitir(ctx, detalle.Propietario.ID, detalle.Calificacion.ID, domain.TipoVehiculoCalificado); omitir || err != nil {
		return false, err
	}

	mensaje := fmt.Sprintf(
		"Su vehículo %s (%s, placa %s) ha recibido una calificación de %d estrellas",
		detalle.Auto.Modelo, detalle.Auto.Marca, detalle.Auto.Placa, detalle.Calificacion.Puntuacion)
	if detalle.Calificacion.Comentario != nil && *detalle.Calificacion.Comentario != "" {
		mensaje += fmt.Sprintf(" con el siguiente comentario: %q\n", *detalle.Calificacion.Comentario)
	} else {
		mensaje += ".\n"
	}
	mensaje += fmt.Sprintf("Calificado por: %s %s\nAtte: REDIBO", detalle.Cliente.Nombre, detalle.Cliente.Apellido)

	entidadID, tipoEntidad := referencia(detalle.Calificacion.ID, domain.EntidadCalificacion)
	_, err = s.CrearNotificacion(ctx, domain.CrearNotificacionDTO{
		UsuarioID:   detalle.Propietario.ID,
		Titulo:      "Calificación Recibida",
		Mensaje:     mensaje,
		Tipo:        domain.TipoVehiculoCalificado,
		Prioridad:   domain.PrioridadMedia,
		EntidadID:   entidadID,
		TipoEntidad: tipoEntidad,
	})
	return err == nil, err
}

// NotificarReservaConfirmada tells the customer their reservation is
// confirmed, reporting full or partial payment.
func (s *NotificacionService) NotificarReservaConfirmada(ctx context.Context, reservaID uuid.UUID) (bool, error) {
	detalle, err := s.reader.GetReservaDetalle(ctx, reservaID)
	if errors.Is(err, rental.ErrReservaNoEncontrada) {
		s.logger.Warn("reserva inexistente al notificar confirmacion", "reserva", reservaID)
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if detalle.Reserva.Estado != rental.ReservaConfirmada {
		return false, nil
	}

	if omitir, err := s.debeOmitir(ctx, detalle.Cliente.ID, reservaID, domain.TipoReservaConfirmada); omitir || err != nil {
		return false, err
	}

	montoPagado := "100%"
	if detalle.Reserva.MontoPagado < detalle.Reserva.MontoTotal {
		montoPagado = fmt.Sprintf("50%% (%.2f)", detalle.Reserva.MontoPagado)
	}
	mensaje := fmt.Sprintf(
		"Su reserva del vehículo %s %s (placa %s) ha sido confirmada con un pago del %s.",
		detalle.Auto.Modelo, detalle.Auto.Marca, detalle.Auto.Placa, montoPagado)
	if !detalle.Reserva.EstaPagada && detalle.Reserva.FechaLimitePago != nil {
		mensaje += fmt.Sprintf(" Complete el pago de %.2f antes del <strong>%s</strong>.",
			detalle.Reserva.MontoTotal-detalle.Reserva.MontoPagado,
			detalle.Reserva.FechaLimitePago.Format("02/01/2006"))
	}
	mensaje += "\nAtte: REDIBO"

	entidadID, tipoEntidad := referencia(reservaID, domain.EntidadReserva)
	_, err = s.CrearNotificacion(ctx, domain.CrearNotificacionDTO{
		UsuarioID:   detalle.Cliente.ID,
		Titulo:      "Reserva Confirmada",
		Mensaje:     mensaje,
		Tipo:        domain.TipoReservaConfirmada,
		Prioridad:   domain.PrioridadAlta,
		EntidadID:   entidadID,
		TipoEntidad: tipoEntidad,
	})
	return err == nil, err
}

// NotificarReservaCancelada tells the customer their reservation was
// cancelled for not completing the remaining payment. A fully paid
// reservation never triggers it.
func (s *NotificacionService) NotificarReservaCancelada(ctx context.Context, reservaID uuid.UUID) (bool, error) {
	detalle, err := s.reader.GetReservaDetalle(ctx, reservaID)
	if errors.Is(err, rental.ErrReservaNoEncontrada) {
		s.logger.Warn("reserva inexistente al notificar cancelacion", "reserva", reservaID)
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if detalle.Reserva.EstaPagada {
		return false, nil
	}

	if omitir, err := s.debeOmitir(ctx, detalle.Cliente.ID, reservaID, domain.TipoReservaCancelada); omitir || err != nil {
		return false, err
	}

	mensaje := fmt.Sprintf(
		"Su reserva del vehículo %s %s (placa %s) ha sido cancelada por no completar el pago restante.",
		detalle.Auto.Modelo, detalle.Auto.Marca, detalle.Auto.Placa)
	if detalle.Reserva.FechaLimitePago != nil {
		mensaje += fmt.Sprintf(" La fecha límite de pago era el <strong>%s</strong>.",
			detalle.Reserva.FechaLimitePago.Format("02/01/2006"))
	}
	mensaje += "\nAtte: REDIBO"

	entidadID, tipoEntidad := referencia(reservaID, domain.EntidadReserva)
	_, err = s.CrearNotificacion(ctx, domain.CrearNotificacionDTO{
		UsuarioID:   detalle.Cliente.ID,
		Titulo:      "Reserva Cancelada",
		Mensaje:     mensaje,
		Tipo:        domain.TipoReservaCancelada,
		Prioridad:   domain.PrioridadAlta,
		EntidadID:   entidadID,
		TipoEntidad: tipoEntidad,
	})
	return err == nil, err
}

// NotificarDepositoGarantia confirms the guarantee deposit to the customer.
func (s *NotificacionService) NotificarDepositoGarantia(ctx context.Context, reservaID uuid.UUID) (bool, error) {
	detalle, err := s.reader.GetReservaDetalle(ctx, reservaID)
	if errors.Is(err, rental.ErrReservaNoEncontrada) {
		s.logger.Warn("reserva inexistente al notificar deposito", "reserva", reservaID)
		return false, nil
	}
	if err != nil {
		return false, err
	}

	if omitir, err := s.debeOmitir(ctx, detalle.Cliente.ID, reservaID, domain.TipoDepositoConfirmado); omitir || err != nil {
		return false, err
	}

	mensaje := fmt.Sprintf(
		"El depósito al vehículo %s %s con placa %s se ha realizado con éxito.\nAtte: REDIBO",
		detalle.Auto.Modelo, detalle.Auto.Marca, detalle.Auto.Placa)

	entidadID, tipoEntidad := referencia(reservaID, domain.EntidadReserva)
	_, err = s.CrearNotificacion(ctx, domain.CrearNotificacionDTO{
		UsuarioID:   detalle.Cliente.ID,
		Titulo:      "Depósito exitoso",
		Mensaje:     mensaje,
		Tipo:        domain.TipoDepositoConfirmado,
		Prioridad:   domain.PrioridadAlta,
		EntidadID:   entidadID,
		TipoEntidad: tipoEntidad,
	})
	return err == nil, err
}

// NotificarDepositoGarantiaPropietario confirms the received deposit to the
// vehicle owner.
func (s *NotificacionService) NotificarDepositoGarantiaPropietario(ctx context.Context, reservaID uuid.UUID) (bool, error) {
	detalle, err := s.reader.GetReservaDetalle(ctx, reservaID)
	if errors.Is(err, rental.ErrReservaNoEncontrada) {
		s.logger.Warn("reserva inexistente al notificar deposito al propietario", "reserva", reservaID)
		return false, nil
	}
	if err != nil {
		return false, err
	}

	if omitir, err := s.debeOmitir(ctx, detalle.Propietario.ID, reservaID, domain.TipoDepositoConfirmado); omitir || err != nil {
		return false, err
	}

	mensaje := fmt.Sprintf(
		"El usuario %s %s ha realizado el depósito para la reserva del vehículo %s %s con placa %s.\nAtte: REDIBO",
		detalle.Cliente.Nombre, detalle.Cliente.Apellido,
		detalle.Auto.Modelo, detalle.Auto.Marca, detalle.Auto.Placa)

	entidadID, tipoEntidad := referencia(reservaID, domain.EntidadReserva)
	_, err = s.CrearNotificacion(ctx, domain.CrearNotificacionDTO{
		UsuarioID:   detalle.Propietario.ID,
		Titulo:      "Depósito Recibido",
		Mensaje:     mensaje,
		Tipo:        domain.TipoDepositoConfirmado,
		Prioridad:   domain.PrioridadAlta,
		EntidadID:   entidadID,
		TipoEntidad: tipoEntidad,
	})
	return err == nil, err
}
