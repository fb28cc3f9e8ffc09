package jobs

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	rental "github.com/redibo/backend/internal/modules/rental/domain"
)

const (
	// IntervaloMinimo bounds read-amplification of the sweep loop.
	IntervaloMinimo = 2 * time.Second

	ventanaConfirmadas = 24 * time.Hour
	timeoutBarrido     = 15 * time.Second
)

var (
	barridos = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "reconciler_barridos_total",
		Help: "Reconciler sweeps by condition and outcome.",
	}, []string{"condicion", "resultado"})

	notificacionesEmitidas = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "reconciler_notificaciones_emitidas_total",
		Help: "Notifications emitted by reconciler sweeps.",
	}, []string{"condicion"})
)

// Notificadores is the slice of the notification service the reconciler
// drives.
type Notificadores interface {
	NotificarRentaConcluida(ctx context.Context, rentaID uuid.UUID) (bool, error)
	NotificarRentaCancelada(ctx context.Context, rentaID uuid.UUID) (bool, error)
	NotificarReservaConfirmada(ctx context.Context, reservaID uuid.UUID) (bool, error)
}

// condicion is one tracked state predicate. Its in-flight flag skips ticks
// that fire while the previous sweep is still running; ticks are dropped,
// never queued. The three conditions run independently.
type condicion struct {
	nombre  string
	enCurso atomic.Bool
	barrer  func(ctx context.Context) (int, error)
}

// Reconciler periodically finds domain entities whose state implies a
// notification that does not exist yet, and emits it through the service.
// It holds no state beyond its timers.
type Reconciler struct {
	notificadores Notificadores
	sweeps        rental.SweepReader
	intervalo     time.Duration
	logger        *slog.Logger

	condiciones []*condicion
	stop        chan struct{}
	stopOnce    sync.Once
	wg          sync.WaitGroup
}

func NewReconciler(notificadores Notificadores, sweeps rental.SweepReader, intervalo time.Duration, logger *slog.Logger) *Reconciler {
	if intervalo < IntervaloMinimo {
		intervalo = IntervaloMinimo
	}
	if logger == nil {
		logger = slog.Default()
	}

	r := &Reconciler{
		notificadores: notificadores,
		sweeps:        sweeps,
		intervalo:     intervalo,
		logger:        logger,
		stop:          make(chan struct{}),
	}
	r.condiciones = []*condicion{
		{nombre: "rentas_finalizadas", barrer: r.barrerRentasFinalizadas},
		{nombre: "rentas_canceladas", barrer: r.barrerRentasCanceladas},
		{nombre: "reservas_confirmadas", barrer: r.barrerReservasConfirmadas},
	}
	return r
}

// Iniciar installs one repeating timer per tracked condition.
func (r *Reconciler) Iniciar() {
	for _, c := range r.condiciones {
		r.wg.Add(1)
		go func(c *condicion) {
			defer r.wg.Done()
			ticker := time.NewTicker(r.intervalo)
			defer ticker.Stop()
			for {
				select {
				case <-ticker.C:
					r.ejecutar(c)
				case <-r.stop:
					return
				}
			}
		}(c)
	}
	r.logger.Info("reconciler iniciado", "intervalo", r.intervalo)
}

// Detener cancels the timers and waits for in-flight sweeps to finish.
func (r *Reconciler) Detener() {
	r.stopOnce.Do(func() {
		close(r.stop)
	})
	r.wg.Wait()
	r.logger.Info("reconciler detenido")
}

// EjecutarUnaVez runs every condition once, sequentially. Used at startup
// to drain the backlog without waiting for the first tick.
func (r *Reconciler) EjecutarUnaVez() {
	for _, c := range r.condiciones {
		r.ejecutar(c)
	}
}

func (r *Reconciler) ejecutar(c *condicion) {
	if !c.enCurso.CompareAndSwap(false, true) {
		barridos.WithLabelValues(c.nombre, "omitido").Inc()
		return
	}
	defer c.enCurso.Store(false)

	ctx, cancel := context.WithTimeout(context.Background(), timeoutBarrido)
	defer cancel()

	emitidas, err := c.barrer(ctx)
	if err != nil {
		// A failed sweep never cancels future sweeps.
		barridos.WithLabelValues(c.nombre, "fallido").Inc()
		r.logger.Error("barrido fallido", "condicion", c.nombre, "error", err)
		return
	}
	barridos.WithLabelValues(c.nombre, "completado").Inc()
	if emitidas > 0 {
		notificacionesEmitidas.WithLabelValues(c.nombre).Add(float64(emitidas))
		r.logger.Info("barrido emitio notificaciones", "condicion", c.nombre, "emitidas", emitidas)
	}
}

// notificarCada invokes the notifier per entity, isolating per-entity
// failures so one bad row never blocks the rest of the sweep.
func (r *Reconciler) notificarCada(ctx context.Context, condicion string, ids []uuid.UUID, notificar func(context.Context, uuid.UUID) (bool, error)) int {
	emitidas := 0
	for _, id := range ids {
		creada, err := notificar(ctx, id)
		if err != nil {
			r.logger.Error("notificador fallido durante barrido", "condicion", condicion, "entidad", id, "error", err)
			continue
		}
		if creada {
			emitidas++
		}
	}
	return emitidas
}

func (r *Reconciler) barrerRentasFinalizadas(ctx context.Context) (int, error) {
	ids, err := r.sweeps.RentasFinalizadasSinNotificacion(ctx)
	if err != nil {
		return 0, err
	}
	return r.notificarCada(ctx, "rentas_finalizadas", ids, r.notificadores.NotificarRentaConcluida), nil
}

func (r *Reconciler) barrerRentasCanceladas(ctx context.Context) (int, error) {
	ids, err := r.sweeps.RentasCanceladasSinNotificacion(ctx)
	if err != nil {
		return 0, err
	}
	return r.notificarCada(ctx, "rentas_canceladas", ids, r.notificadores.NotificarRentaCancelada), nil
}

func (r *Reconciler) barrerReservasConfirmadas(ctx context.Context) (int, error) {
	ids, err := r.sweeps.ReservasConfirmadasSinNotificacion(ctx, time.Now().Add(-ventanaConfirmadas))
	if err != nil {
		return 0, err
	}
	return r.notificarCada(ctx, "reservas_confirmadas", ids, r.notificadores.NotificarReservaConfirmada), nil
}
