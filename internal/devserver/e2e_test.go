package devserver

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/hariseldon84/singlebrief-full-sub000/internal/analysis"
	"github.com/hariseldon84/singlebrief-full-sub000/internal/chat"
	identityclient "github.com/hariseldon84/singlebrief-full-sub000/internal/identity/client"
	sessionrepo "github.com/hariseldon84/singlebrief-full-sub000/internal/session/repository"
	sessionservice "github.com/hariseldon84/singlebrief-full-sub000/internal/session/service"
	teamclient "github.com/hariseldon84/singlebrief-full-sub000/internal/teammgmt/client"
	teamdomain "github.com/hariseldon84/singlebrief-full-sub000/internal/teammgmt/domain"
	"github.com/hariseldon84/singlebrief-full-sub000/internal/workflow"
)

// serve starts app on a loopback port and returns its base URL (host:port).
func serve(t *testing.T, app *fiber.App) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	go func() { _ = app.Listener(ln) }()
	t.Cleanup(func() { _ = app.Shutdown() })
	return ln.Addr().String()
}

func TestEndToEnd_SessionAndQueryWorkflow(t *testing.T) {
	addr := serve(t, newTestApp(t))
	authURL := "http://" + addr + APIPrefix + "/auth"
	apiURL := "http://" + addr + APIPrefix
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	kv := sessionrepo.NewMemoryKV()
	mgr := sessionservice.NewManager(identityclient.New(authURL, 5*time.Second), sessionrepo.NewKVRepository(kv), sessionservice.Options{})

	if _, err := mgr.Register(ctx, "ada@example.com", "correct-horse-42", "Ada Lovelace", "Engines"); err != nil {
		t.Fatalf("Register: %v", err)
	}
	mgr.Logout(ctx)
	if mgr.IsAuthenticated() {
		t.Fatal("still authenticated after logout")
	}

	// Wrong password: the service's detail comes back verbatim and nothing is stored.
	_, err := mgr.Login(ctx, "ada@example.com", "wrong-pass-1", false)
	var apiErr *identityclient.APIError
	if !errors.As(err, &apiErr) || apiErr.Error() != "incorrect email or password" {
		t.Fatalf("bad login err = %v", err)
	}
	if n := kv.Len(); n != 0 {
		t.Fatalf("persistence holds %d entries after failed login", n)
	}

	sess, err := mgr.Login(ctx, "ada@example.com", "correct-horse-42", true)
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if !sess.IsAuthenticated() || sess.User.Email != "ada@example.com" || sess.Organization == nil {
		t.Fatalf("session = %+v", sess)
	}
	if _, ok, _ := kv.Get(ctx, sessionrepo.KeyTokens); !ok {
		t.Fatal("tokens not persisted")
	}

	// Refresh validates via /me and keeps the session.
	mgr.Refresh(ctx)
	if !mgr.IsAuthenticated() {
		t.Fatal("refresh dropped a valid session")
	}

	team := teamclient.New(apiURL, 5*time.Second, mgr)
	if _, err := team.CreateMember(ctx, teamdomain.MemberInput{FullName: "Bob", Email: "bob@example.com", Department: "Sales"}); err != nil {
		t.Fatalf("CreateMember: %v", err)
	}
	members, err := team.ActiveMembers(ctx)
	if err != nil {
		t.Fatalf("ActiveMembers: %v", err)
	}
	recipients := workflow.RecipientsFromMembers(members)
	if len(recipients) != 2 {
		t.Fatalf("recipients = %+v", recipients)
	}

	transport, err := chat.Dial(ctx, "ws://"+addr+APIPrefix+"/chat/ws", mgr.AccessToken(), zap.NewNop())
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer transport.Close()

	flow := workflow.NewFlow(workflow.FlowOptions{
		Analysis:  analysis.NewHTTPService(apiURL, 5*time.Second, mgr),
		Transport: transport,
	})
	defer flow.Close()

	flow.SetQuestion("How is the Q3 launch going?")
	flow.Advance()
	flow.SetRecipients(recipients)
	flow.Advance()
	flow.Wait()
	s := flow.State()
	if !s.BreakdownComplete() {
		t.Fatalf("breakdown incomplete: %+v (last error %q)", s.Breakdown, s.LastError)
	}
	if !flow.Advance() {
		t.Fatal("advance into chat refused")
	}

	id, err := flow.Send(recipients[1].ID, "Any blockers on your side?")
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	deadline := time.Now().Add(5 * time.Second)
	for {
		s = flow.State()
		m, _ := s.Message(id)
		replied := false
		for _, msg := range s.Messages {
			if msg.Status == workflow.StatusReceived && msg.RecipientID == recipients[1].ID {
				replied = true
			}
		}
		if m.Status == workflow.StatusDelivered && replied {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("no delivery/reply: %+v", s.Messages)
		}
		time.Sleep(10 * time.Millisecond)
	}

	mgr.Logout(ctx)
	if n := kv.Len(); n != 0 {
		t.Errorf("persistence holds %d entries after logout", n)
	}
	if _, err := team.ListMembers(ctx); !errors.Is(err, teamclient.ErrNotAuthenticated) {
		t.Errorf("ListMembers after logout = %v", err)
	}
}
