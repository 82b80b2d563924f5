package orders

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/retailerp-backend/internal/totals"
	"github.com/angelmondragon/retailerp-backend/pkg/db"
	"github.com/angelmondragon/retailerp-backend/pkg/db/dbtest"
	"github.com/angelmondragon/retailerp-backend/pkg/db/models"
	"github.com/angelmondragon/retailerp-backend/pkg/enums"
	"github.com/angelmondragon/retailerp-backend/pkg/outbox"
	"github.com/angelmondragon/retailerp-backend/pkg/pagination"
)

func seedOrder(t *testing.T, repo Repository, ref string, screen enums.OrderScreen, customer string, payable string, createdAt time.Time) models.Order {
	t.Helper()
	order := models.Order{
		Reference:    ref,
		Screen:       screen,
		DiscountType: enums.DiscountTypeAmount,
		TotalPayable: decimal.RequireFromString(payable),
		LineCount:    1,
		CreatedAt:    createdAt,
		UpdatedAt:    createdAt,
		Lines: []models.OrderLineItem{{
			RowID:    "r-1",
			Name:     "Widget",
			Quantity: decimal.NewFromInt(1),
			Subtotal: decimal.RequireFromString(payable),
		}},
	}
	if customer != "" {
		order.CustomerName = &customer
	}
	require.NoError(t, repo.Create(context.Background(), &order))
	return order
}

func TestRepositoryCreateAndFind(t *testing.T) {
	repo := NewRepository(dbtest.Open(t))
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	order := models.Order{
		Reference:    "SO-20260301-AAAAAA",
		Screen:       enums.OrderScreenSale,
		DiscountType: enums.DiscountTypePercentage,
		TotalPayable: decimal.RequireFromString("1010.00"),
		LineCount:    2,
		CreatedAt:    base,
		UpdatedAt:    base,
		Lines: []models.OrderLineItem{
			{RowID: "b", Position: 1, Name: "Second", Quantity: decimal.NewFromInt(2)},
			{RowID: "a", Position: 0, Name: "First", Quantity: decimal.NewFromInt(1)},
		},
	}
	require.NoError(t, repo.Create(ctx, &order))
	require.NotEqual(t, uuid.Nil, order.ID)

	found, err := repo.FindByID(ctx, order.ID)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, "1010", found.TotalPayable.String())
	require.Len(t, found.Lines, 2)
	assert.Equal(t, "First", found.Lines[0].Name)
	assert.Equal(t, "Second", found.Lines[1].Name)

	missing, err := repo.FindByID(ctx, uuid.New())
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestRepositoryRejectsDuplicateReference(t *testing.T) {
	repo := NewRepository(dbtest.Open(t))
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	seedOrder(t, repo, "SO-20260301-DUPDUP", enums.OrderScreenSale, "", "1.00", now)

	dup := models.Order{Reference: "SO-20260301-DUPDUP", Screen: enums.OrderScreenSale, DiscountType: enums.DiscountTypeAmount, CreatedAt: now, UpdatedAt: now}
	err := repo.Create(context.Background(), &dup)
	require.Error(t, err)
	assert.True(t, db.IsUniqueViolation(err, ""))
}

func TestRepositoryListFiltersAndPages(t *testing.T) {
	repo := NewRepository(dbtest.Open(t))
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	a := seedOrder(t, repo, "SO-20260301-AAAAAA", enums.OrderScreenSale, "Ada Lovelace", "30.00", base)
	b := seedOrder(t, repo, "SO-20260301-BBBBBB", enums.OrderScreenSale, "Grace Hopper", "10.00", base.Add(time.Minute))
	c := seedOrder(t, repo, "SO-20260301-CCCCCC", enums.OrderScreenDraft, "", "20.00", base.Add(2*time.Minute))

	page, next, err := repo.List(ctx, listQuery{Sort: SortCreatedAt, Direction: pagination.DirectionDesc, Limit: 2})
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, c.ID, page[0].ID)
	assert.Equal(t, b.ID, page[1].ID)
	require.NotNil(t, next)

	page, next, err = repo.List(ctx, listQuery{Sort: SortCreatedAt, Direction: pagination.DirectionDesc, Limit: 2, Cursor: next})
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, a.ID, page[0].ID)
	assert.Nil(t, next)

	page, _, err = repo.List(ctx, listQuery{Screen: enums.OrderScreenDraft, Sort: SortCreatedAt, Direction: pagination.DirectionDesc})
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, c.ID, page[0].ID)

	page, _, err = repo.List(ctx, listQuery{Query: "grace", Sort: SortCreatedAt, Direction: pagination.DirectionDesc})
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, b.ID, page[0].ID)

	page, _, err = repo.List(ctx, listQuery{Query: "cccccc", Sort: SortCreatedAt, Direction: pagination.DirectionDesc})
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, c.ID, page[0].ID)
}

func TestRepositoryListByTotalPayable(t *testing.T) {
	repo := NewRepository(dbtest.Open(t))
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	low := seedOrder(t, repo, "SO-20260301-LOWLOW", enums.OrderScreenSale, "", "5.00", base)
	high := seedOrder(t, repo, "SO-20260301-HIGHHI", enums.OrderScreenSale, "", "100.00", base.Add(time.Minute))
	mid := seedOrder(t, repo, "SO-20260301-MIDMID", enums.OrderScreenSale, "", "50.00", base.Add(2*time.Minute))

	page, next, err := repo.List(ctx, listQuery{Sort: SortTotalPayable, Direction: pagination.DirectionAsc, Limit: 2})
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, low.ID, page[0].ID)
	assert.Equal(t, mid.ID, page[1].ID)
	require.NotNil(t, next)
	assert.Equal(t, "50.00", next.Key)

	page, next, err = repo.List(ctx, listQuery{Sort: SortTotalPayable, Direction: pagination.DirectionAsc, Limit: 2, Cursor: next})
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, high.ID, page[0].ID)
	assert.Nil(t, next)
}

func TestSubmitPersistsOrderAndOutboxEvent(t *testing.T) {
	conn := dbtest.Open(t)
	outboxRepo := outbox.NewRepository(conn)
	svc, err := NewService(Deps{
		Repo:   NewRepository(conn),
		Tx:     db.NewFromGorm(conn),
		Outbox: outbox.NewService(outboxRepo, nil),
		Stock:  stubStock{},
		Now:    func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) },
	})
	require.NoError(t, err)

	ctx := context.Background()
	customer := "  Ada  "
	result, err := svc.Submit(ctx, SubmitInput{
		Screen:       enums.OrderScreenCustomer,
		CustomerName: &customer,
		Lines: []totals.LineItem{
			{Name: "Widget", Quantity: 10, UnitPrice: 100},
		},
		Adjustments: totals.Adjustments{
			DiscountType:    enums.DiscountTypePercentage,
			DiscountAmount:  10,
			OrderTax:        10,
			ShippingCharges: 20,
			PaymentAmount:   1000,
		},
	})
	require.NoError(t, err)
	assert.Regexp(t, `^SO-20260301-[A-Z2-9]{6}$`, result.Order.Reference)
	assert.Equal(t, "Ada", *result.Order.CustomerName)

	orderID := uuid.MustParse(result.Order.ID)
	stored, err := NewRepository(conn).FindByID(ctx, orderID)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, "1010.00", stored.TotalPayable.StringFixed(2))
	assert.Equal(t, "10.00", stored.Balance.StringFixed(2))
	require.Len(t, stored.Lines, 1)

	events, err := outboxRepo.FindByAggregate(orderID)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, enums.EventOrderCreated, events[0].EventType)

	var envelope outbox.PayloadEnvelope
	require.NoError(t, json.Unmarshal(events[0].Payload, &envelope))
	var payload map[string]any
	require.NoError(t, json.Unmarshal(envelope.Data, &payload))
	assert.Equal(t, result.Order.Reference, payload["reference"])
	assert.Equal(t, "1010.00", payload["totals"].(map[string]any)["total_payable"])
}
