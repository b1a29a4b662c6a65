package application

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/bnema/stockroom/internal/credparse"
	"github.com/bnema/stockroom/internal/domain"
	"github.com/bnema/stockroom/internal/ports"
)

const ingestSavepoint = "ingest_row"

// IngestResult accounts for every parsed row:
// Inserted + Duplicates + Failed == Parsed.
type IngestResult struct {
	Type       domain.ResourceType
	BatchID    string
	Price      decimal.Decimal
	Parsed     int
	Inserted   int
	Duplicates int
	Failed     int
	Skipped    int
}

type IngestionService struct {
	inventory ports.Inventory
	clock     ports.Clock
	logger    zerolog.Logger
}

func NewIngestionService(inventory ports.Inventory, clock ports.Clock, logger zerolog.Logger) *IngestionService {
	if clock == nil {
		clock = ports.SystemClock{}
	}

	return &IngestionService{inventory: inventory, clock: clock, logger: logger}
}

// Ingest parses free-form supplier text and adds every new credential to
// the free pool at the given unit price.
func (s *IngestionService) Ingest(ctx context.Context, actor domain.Actor, resourceType domain.ResourceType, text string, price decimal.Decimal) (IngestResult, error) {
	if err := actor.Require(domain.CapabilityIngest); err != nil {
		return IngestResult{}, err
	}

	rows, skipped := credparse.ParseBlock(text)
	return s.IngestRows(ctx, actor, resourceType, rows, skipped, price)
}

// Import reads an owner batch: a header line "<type> <price>", optionally
// prefixed by a command word, followed by "login;password;proxy" lines.
func (s *IngestionService) Import(ctx context.Context, actor domain.Actor, text string) (IngestResult, error) {
	if err := actor.Require(domain.CapabilityImport); err != nil {
		return IngestResult{}, err
	}

	header, body, _ := strings.Cut(strings.TrimLeft(text, " \t\r\n"), "\n")
	resourceType, price, err := parseImportHeader(header)
	if err != nil {
		return IngestResult{}, err
	}

	rows, skipped := credparse.ParseSeparatedBlock(body, ";")
	return s.IngestRows(ctx, actor, resourceType, rows, skipped, price)
}

func parseImportHeader(header string) (domain.ResourceType, decimal.Decimal, error) {
	fields := strings.Fields(header)
	if len(fields) > 0 && strings.HasPrefix(fields[0], "/") {
		fields = fields[1:]
	}
	if len(fields) < 2 {
		return "", decimal.Decimal{}, domain.Reject(domain.ErrEmptyType, "first line must be: <type> <price>")
	}

	price, err := ParsePrice(fields[1])
	if err != nil {
		return "", decimal.Decimal{}, err
	}
	return domain.NormalizeType(fields[0]), price, nil
}

// ParsePrice accepts both "12.5" and "12,5".
func ParsePrice(raw string) (decimal.Decimal, error) {
	price, err := decimal.NewFromString(strings.ReplaceAll(strings.TrimSpace(raw), ",", "."))
	if err != nil {
		return decimal.Decimal{}, domain.Reject(domain.ErrInvalidPrice, "invalid price %q", raw)
	}
	if price.IsNegative() {
		return decimal.Decimal{}, domain.Reject(domain.ErrInvalidPrice, "price cannot be negative")
	}
	return price.Round(2), nil
}

// IngestRows inserts already parsed rows in one transaction. A row that
// fails is rolled back to its savepoint and counted, the batch goes on.
func (s *IngestionService) IngestRows(ctx context.Context, actor domain.Actor, resourceType domain.ResourceType, rows []credparse.Credential, skipped int, price decimal.Decimal) (IngestResult, error) {
	if err := actor.Require(domain.CapabilityIngest); err != nil {
		return IngestResult{}, err
	}
	resourceType = domain.NormalizeType(string(resourceType))
	if !resourceType.Valid() {
		return IngestResult{}, domain.Reject(domain.ErrEmptyType, "resource type must be a single non-empty word")
	}
	if price.IsNegative() {
		return IngestResult{}, domain.Reject(domain.ErrInvalidPrice, "price cannot be negative")
	}

	now := s.clock.Now().UTC()
	result := IngestResult{
		Type:    resourceType,
		BatchID: ulid.MustNew(ulid.Timestamp(now), rand.Reader).String(),
		Price:   price,
		Parsed:  len(rows),
		Skipped: skipped,
	}
	if len(rows) == 0 {
		return result, nil
	}

	log := s.logger.With().Str("batch_id", result.BatchID).Str("type", string(resourceType)).Logger()

	var counted IngestResult
	err := s.inventory.WithinTx(ctx, func(tx ports.InventoryTx) error {
		counted = result
		seen := make(map[string]struct{}, len(rows))
		for i, row := range rows {
			if err := ctx.Err(); err != nil {
				return err
			}
			if _, dup := seen[row.Login]; dup {
				counted.Duplicates++
				continue
			}
			seen[row.Login] = struct{}{}

			inserted, err := s.insertRow(ctx, tx, resourceType, row, price, result.BatchID, now)
			if err != nil {
				if !isRowError(err) {
					return err
				}
				counted.Failed++
				log.Warn().Err(err).Int("row", i+1).Msg("ingest row failed")
				continue
			}
			if inserted {
				counted.Inserted++
			} else {
				counted.Duplicates++
			}
		}
		return nil
	})
	if err != nil {
		return IngestResult{}, fmt.Errorf("ingest %s: %w", resourceType, err)
	}

	log.Info().
		Int("parsed", counted.Parsed).
		Int("inserted", counted.Inserted).
		Int("duplicates", counted.Duplicates).
		Int("failed", counted.Failed).
		Int("skipped", counted.Skipped).
		Msg("batch ingested")
	return counted, nil
}

// rowError marks a failure confined to one row; the savepoint was rolled
// back and the transaction is still usable.
type rowError struct {
	err error
}

func (e rowError) Error() string { return e.err.Error() }
func (e rowError) Unwrap() error { return e.err }

func isRowError(err error) bool {
	var re rowError
	return errors.As(err, &re)
}

func (s *IngestionService) insertRow(ctx context.Context, tx ports.InventoryTx, resourceType domain.ResourceType, row credparse.Credential, price decimal.Decimal, batchID string, now time.Time) (bool, error) {
	if err := tx.Savepoint(ctx, ingestSavepoint); err != nil {
		return false, err
	}

	id, inserted, err := tx.InsertResource(ctx, domain.NewResource{
		Type:      resourceType,
		Login:     row.Login,
		Password:  row.Password,
		Proxy:     row.Proxy,
		BuyPrice:  price,
		BatchID:   batchID,
		CreatedAt: now,
	})
	if err == nil && inserted {
		err = tx.AppendHistory(ctx, domain.HistoryEntry{
			At:         now,
			ResourceID: id,
			Type:       resourceType,
			Price:      decimal.NewNullDecimal(price),
			Action:     domain.ActionPurchase,
		})
	}
	if err != nil {
		if rbErr := tx.RollbackTo(ctx, ingestSavepoint); rbErr != nil {
			return false, errors.Join(err, fmt.Errorf("rollback savepoint: %w", rbErr))
		}
		return false, rowError{err: err}
	}

	if err := tx.Release(ctx, ingestSavepoint); err != nil {
		return false, err
	}
	return inserted, nil
}
