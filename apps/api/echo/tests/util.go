package tests

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	. "github.com/eacna/portal/apps/api/echo"
	"github.com/eacna/portal/core"
	"github.com/eacna/portal/core/event"
	"github.com/eacna/portal/core/livelist"
	"github.com/eacna/portal/core/member"
	"github.com/eacna/portal/core/payment"
	"github.com/eacna/portal/core/query"
	"github.com/eacna/portal/core/specialist"
	emailsvc "github.com/eacna/portal/services/email"
	logsvc "github.com/eacna/portal/services/logger"
	inmemdb "github.com/eacna/portal/storage/database/inmem"
)

const testPassword = "G00d#Pass"

var errMissingToken = httpErr{Error: "missing or malformed jwt"}

type fixture struct {
	server Server

	mbrRepo member.Repository
	mbrSvc  member.Service
	paySvc  payment.Service
	evtSvc  event.Service
	qrySvc  query.Service
}

func setup(t *testing.T) *fixture {
	t.Helper()

	// error bodies are only stable outside debug mode
	core.Conf.Debug = false
	core.Conf.TestMode = true
	emailsvc.ClearSentMessages()

	// set up repos
	db := inmemdb.NewDB()
	mbrRepo := inmemdb.NewMemberRepository(db)
	payRepo := inmemdb.NewPaymentRepository(db)
	donRepo := inmemdb.NewDonationRepository(db)
	spcRepo := inmemdb.NewSpecialistRepository(db)
	evtRepo := inmemdb.NewEventRepository(db)
	qryRepo := inmemdb.NewQueryRepository(db)

	// set up services
	mailSvc := emailsvc.NewConsoleServiceMock()
	logger := logsvc.NewStdLogger(log.New(io.Discard, "", 0))

	validate, translator := core.NewValidator()
	member.RegisterValidators(validate, translator)
	event.RegisterValidators(validate, translator)
	query.RegisterValidators(validate, translator)

	f := &fixture{
		mbrRepo: mbrRepo,
		mbrSvc:  member.NewServiceMock(mbrRepo, payRepo, mailSvc, nil, logger),
		paySvc:  payment.NewService(payRepo, donRepo, nil, logger),
		evtSvc:  event.NewService(evtRepo, nil, logger),
		qrySvc:  query.NewService(qryRepo, mailSvc, nil, logger),
	}

	// live events view over the in-memory feed
	eventList, err := livelist.Open(context.Background(), livelist.Options[event.Event]{
		Source: db.Events(),
		Less:   func(a, b event.Event) bool { return a.Date.Before(b.Date) },
		ID:     func(evt event.Event) string { return evt.ID },
	})
	if err != nil {
		t.Fatalf("opening events live list failed: %v", err)
	}
	t.Cleanup(func() { _ = eventList.Close() })

	// set up server
	f.server = NewServer(
		&Options{
			DisableReqLogs: true,
			EventList:      eventList,
			MemberSvc:      f.mbrSvc,
			PaymentSvc:     f.paySvc,
			SpecialistSvc:  specialist.NewService(spcRepo, nil, nil, logger),
			EventSvc:       f.evtSvc,
			QuerySvc:       f.qrySvc,
			Validate:       validate,
			Translator:     translator,
			Logger:         logger,
		},
	)
	return f
}

// createMember seeds a member directly through the repository.
func createMember(t *testing.T, repo member.Repository, name, email string, isAdmin bool) member.Member {
	t.Helper()
	now := time.Now().UTC()
	mbr := member.Member{
		Name:             name,
		Email:            email,
		Phone:            "+254700000000",
		Profession:       "Neurologist",
		Tier:             member.TierFull,
		MembershipStatus: member.MembershipPending,
		PaymentStatus:    member.PaymentPending,
		IsAdmin:          isAdmin,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if isAdmin {
		mbr.MembershipStatus = member.MembershipActive
		mbr.PaymentStatus = member.PaymentApproved
	}
	if err := mbr.SetPassword(testPassword); err != nil {
		t.Fatalf("SetPassword() failed: %v", err)
	}
	mbr, err := repo.CreateMember(context.Background(), mbr)
	if err != nil {
		t.Fatalf("CreateMember() failed: %v", err)
	}
	return mbr
}

type httpErr struct {
	Error string `json:"error"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	token    string
	wantCode int
	wantData []byte
	extra    interface{}
}

func newAuthRequest(method, path, token string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	return req, rec
}

func newRequest(method, path string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	return newAuthRequest(method, path, "", data...)
}

func getToken(t *testing.T, mbr member.Member) string {
	claims := GetMemberClaims(mbr)
	token, err := GenerateToken(claims)
	if err != nil {
		t.Fatalf("getToken() failed: %v", err)
	}
	return token
}

func marchallObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marchallObj() failed: %v", err)
	}
	return data
}

func unmarchallObj(t *testing.T, rec *httptest.ResponseRecorder, obj interface{}) {
	if err := json.Unmarshal(rec.Body.Bytes(), obj); err != nil {
		t.Fatalf("unmarchallObj() failed: %v; body %s", err, rec.Body.String())
	}
}

func jsonBytesEqual(t *testing.T, b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	if reflect.DeepEqual(j1, j2) {
		return true, nil
	}
	if j1 == nil || j2 == nil {
		return false, nil
	}
	return assert.ObjectsAreEqual(j1, j2), nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
	}
	ok, err := jsonBytesEqual(t, rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}
