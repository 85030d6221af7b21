package services

import (
	"context"
	"errors"
	"time"

	"event-management-api/config"
	"event-management-api/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	// ErrLoteEsgotado means the batch capacity is genuinely exhausted.
	// Not retriable: the caller should pick another lote.
	ErrLoteEsgotado = errors.New("lote esgotado")

	// ErrLoteBusy means the lote row lock was held by another transaction.
	// Retriable: nothing was consumed and a later attempt may succeed.
	ErrLoteBusy = errors.New("lote busy")

	// ErrLoteUnavailable means the lote is inactive or outside its window.
	ErrLoteUnavailable = errors.New("lote unavailable")
)

// SeatReservationService hands out seats from capacity-limited lotes.
//
// Reserve never blocks on a contended lote and never maintains a seat
// counter: under the row lock it counts the consuming registrations and
// compares against capacity. The caller's own insert, made in the same
// transaction, is what actually consumes the seat.
type SeatReservationService struct {
	db    *gorm.DB
	audit AuditSink
}

func NewSeatReservationService(db *gorm.DB) *SeatReservationService {
	if db == nil {
		db = config.DB
	}
	return &SeatReservationService{db: db, audit: NewAuditSink()}
}

// Reserve acquires the lote row with FOR UPDATE NOWAIT inside the caller's
// transaction and checks remaining capacity. On success the lock is held
// until the transaction ends; the caller must write its consuming record
// before committing. Any later failure rolls the reservation back with it.
func (s *SeatReservationService) Reserve(tx *gorm.DB, loteID int) (*models.Lote, error) {
	var lote models.Lote
	err := tx.Clauses(clause.Locking{Strength: "UPDATE", Options: "NOWAIT"}).
		Where("lote_id = ? AND delete_at IS NULL", loteID).
		First(&lote).Error
	if err != nil {
		if IsLockContention(err) {
			return nil, ErrLoteBusy
		}
		return nil, err
	}

	if !lote.IsActive || !lote.WindowOpen(time.Now()) {
		return nil, ErrLoteUnavailable
	}

	var used int64
	err = tx.Model(&models.Registration{}).
		Where("lote_id = ? AND status IN ?", loteID,
			[]string{models.RegistrationStatusApproved, models.RegistrationStatusPending}).
		Count(&used).Error
	if err != nil {
		return nil, err
	}

	if used >= int64(lote.Capacity) {
		return nil, ErrLoteEsgotado
	}

	return &lote, nil
}

// Register runs the full registration workflow: reserve a seat and create
// the consuming registration row in one transaction, then audit the
// reservation. Returns ErrLoteEsgotado, ErrLoteBusy or ErrLoteUnavailable
// from the reservation step.
func (s *SeatReservationService) Register(ctx context.Context, reg *models.Registration, actorUserID *int) error {
	if reg.Status == "" {
		reg.Status = models.RegistrationStatusPending
	}
	if reg.CreateAt.IsZero() {
		reg.CreateAt = time.Now()
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		lote, err := s.Reserve(tx, reg.LoteID)
		if err != nil {
			return err
		}
		reg.EventID = lote.EventID

		if err := tx.Create(reg).Error; err != nil {
			return err
		}

		event := &models.AuditEvent{
			Kind:        models.AuditKindReservation,
			ActorUserID: actorUserID,
			LoteID:      &reg.LoteID,
		}
		if err := event.SetPayload(map[string]interface{}{
			"registration_id": reg.RegistrationID,
			"email":           reg.ParticipantEmail,
		}); err != nil {
			return err
		}
		if err := s.audit.Append(tx, event); err != nil {
			logAuditFailure(models.AuditKindReservation, err)
			return err
		}

		return nil
	})
}
