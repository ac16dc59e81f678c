package panel

import (
	"context"
	"strings"
	"testing"
	"time"
)

func TestTransitionRepository_RecordAndList(t *testing.T) {
	db := setupPanelTestDB(t)
	repo := NewSQLiteTransitionRepository(db)
	ctx := context.Background()

	tr := StateTransition{
		EntityType: EntityLED,
		EntityID:   2,
		State:      true,
		Origin:     OriginHardware,
		Actor:      SystemActor,
	}
	if err := repo.Record(ctx, &tr); err != nil {
		t.Fatalf("Record() error = %v", err)
	}

	if !strings.HasPrefix(tr.ID, "trn-") {
		t.Errorf("generated ID = %q, want trn- prefix", tr.ID)
	}
	if tr.CreatedAt.IsZero() {
		t.Error("CreatedAt not generated")
	}

	list, err := repo.List(ctx, TransitionFilter{})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("List() length = %d, want 1", len(list))
	}

	got := list[0]
	if got.EntityType != EntityLED || got.EntityID != 2 || !got.State {
		t.Errorf("transition = %+v", got)
	}
	if got.Origin != OriginHardware || got.Actor != SystemActor {
		t.Errorf("origin/actor = %s/%s, want hardware/%s", got.Origin, got.Actor, SystemActor)
	}
}

func TestTransitionRepository_Filter(t *testing.T) {
	db := setupPanelTestDB(t)
	repo := NewSQLiteTransitionRepository(db)
	ctx := context.Background()

	seed := []StateTransition{
		{EntityType: EntityLED, EntityID: 1, State: true, Origin: OriginUser, Actor: "usr-1"},
		{EntityType: EntityLED, EntityID: 2, State: true, Origin: OriginHardware, Actor: SystemActor},
		{EntityType: EntityPushbutton, EntityID: 1, State: true, Origin: OriginHardware, Actor: SystemActor},
	}
	for i := range seed {
		if err := repo.Record(ctx, &seed[i]); err != nil {
			t.Fatalf("Record() error = %v", err)
		}
	}

	byType, err := repo.List(ctx, TransitionFilter{EntityType: EntityLED})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(byType) != 2 {
		t.Errorf("led transitions = %d, want 2", len(byType))
	}

	byEntity, err := repo.List(ctx, TransitionFilter{EntityType: EntityPushbutton, EntityID: 1})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(byEntity) != 1 || byEntity[0].EntityType != EntityPushbutton {
		t.Errorf("pushbutton 1 transitions = %+v", byEntity)
	}
}

func TestTransitionRepository_ClampsLimit(t *testing.T) {
	db := setupPanelTestDB(t)
	repo := NewSQLiteTransitionRepository(db)
	ctx := context.Background()

	for i := 0; i < 60; i++ {
		tr := StateTransition{
			EntityType: EntityLED,
			EntityID:   1,
			State:      i%2 == 0,
			Origin:     OriginUser,
			Actor:      "usr-1",
			CreatedAt:  time.Now().UTC().Add(time.Duration(i) * time.Second),
		}
		if err := repo.Record(ctx, &tr); err != nil {
			t.Fatalf("Record() error = %v", err)
		}
	}

	defaulted, err := repo.List(ctx, TransitionFilter{})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(defaulted) != defaultHistoryLimit {
		t.Errorf("default limit = %d, want %d", len(defaulted), defaultHistoryLimit)
	}

	clamped, err := repo.List(ctx, TransitionFilter{Limit: 10_000})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(clamped) != 60 {
		t.Errorf("clamped query = %d rows, want all 60 (max is %d)", len(clamped), maxHistoryLimit)
	}
}

func TestTransitionRepository_NewestFirst(t *testing.T) {
	db := setupPanelTestDB(t)
	repo := NewSQLiteTransitionRepository(db)
	ctx := context.Background()

	base := time.Now().UTC().Truncate(time.Second)
	for i := 0; i < 3; i++ {
		tr := StateTransition{
			EntityType: EntityLED,
			EntityID:   1,
			State:      true,
			Origin:     OriginUser,
			Actor:      "usr-1",
			CreatedAt:  base.Add(time.Duration(i) * time.Minute),
		}
		if err := repo.Record(ctx, &tr); err != nil {
			t.Fatalf("Record() error = %v", err)
		}
	}

	list, err := repo.List(ctx, TransitionFilter{})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(list) != 3 {
		t.Fatalf("List() length = %d, want 3", len(list))
	}
	for i := 1; i < len(list); i++ {
		if list[i].CreatedAt.After(list[i-1].CreatedAt) {
			t.Errorf("transitions not newest-first at position %d", i)
		}
	}
}

func TestTransitionRepository_RejectsInvalidEntity(t *testing.T) {
	db := setupPanelTestDB(t)
	repo := NewSQLiteTransitionRepository(db)
	ctx := context.Background()

	bad := StateTransition{EntityType: "scene", EntityID: 1, Origin: OriginUser, Actor: "usr-1"}
	if err := repo.Record(ctx, &bad); err == nil {
		t.Error("Record() accepted invalid entity type")
	}

	outOfRange := StateTransition{EntityType: EntityLED, EntityID: 4, Origin: OriginUser, Actor: "usr-1"}
	if err := repo.Record(ctx, &outOfRange); err == nil {
		t.Error("Record() accepted out-of-range entity id")
	}
}
