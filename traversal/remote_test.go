// Copyright 2026, Square, Inc.

package traversal_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/go-test/deep"

	serr "github.com/square/vertigo/errors"
	"github.com/square/vertigo/test"
	"github.com/square/vertigo/test/mock"
	"github.com/square/vertigo/traversal"
)

func TestRemote(t *testing.T) {
	conn := mock.NewConnection(&mock.RemoteResult{
		Values: []*traversal.Traverser{
			traversal.NewTraverser("marko", false),
			traversal.NewTraverser("josh", false),
		},
	})
	g := traversal.NewSource(test.ModernGraph()).WithRemote(conn)
	tr := g.V().Out("knows").Values("name")

	if diff := deep.Equal(toList(t, tr), []interface{}{"marko", "josh"}); diff != nil {
		t.Error(diff)
	}
	if tr.Len() != 1 || tr.StartStep().Kind() != traversal.REMOTE_STEP {
		t.Errorf("got %s, expected a single RemoteStep", tr)
	}
	if len(conn.Submitted) != 1 {
		t.Fatalf("submitted %d times, expected 1", len(conn.Submitted))
	}
	ops := []string{}
	for _, in := range conn.Submitted[0].Steps {
		ops = append(ops, in.Op)
	}
	expect := []string{traversal.OP_V, traversal.OP_OUT, traversal.OP_VALUES}
	if diff := deep.Equal(ops, expect); diff != nil {
		t.Error(diff)
	}
}

func TestRemoteErrors(t *testing.T) {
	tests := []struct {
		name      string
		submitErr error
		resultErr error
		kind      string
	}{
		{"connection", mock.ErrConnection, nil, serr.KIND_ILLEGAL_STATE},
		{"execution", nil, serr.NewExecutionError(nil, "remote failed"), serr.KIND_EXECUTION},
		{
			name:      "verification",
			resultErr: fmt.Errorf("remote: %w", serr.VerificationError{Strategy: "S", Message: "no"}),
			kind:      serr.KIND_VERIFICATION,
		},
		{"other", nil, mock.ErrStrategy, serr.KIND_ILLEGAL_STATE},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conn := mock.NewConnection(&mock.RemoteResult{Err: tt.resultErr})
			conn.SubmitErr = tt.submitErr
			g := traversal.NewSource(test.ModernGraph()).WithRemote(conn)

			_, err := g.V().Count().ToList(context.Background())
			if err == nil {
				t.Fatal("no error")
			}
			if serr.Kind(err) != tt.kind {
				t.Errorf("kind %s, expected %s (%s)", serr.Kind(err), tt.kind, err)
			}
		})
	}
}
