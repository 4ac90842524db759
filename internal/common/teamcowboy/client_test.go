package teamcowboy

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	commonhttp "team-notifier/internal/common/http"
)

const (
	testPublicKey  = "pub-key"
	testPrivateKey = "priv-key"
)

type fakeAPI struct {
	t          *testing.T
	authCalls  int32
	rejectOnce int32
	handlers   map[string]func(params url.Values) (int, string)
}

func (f *fakeAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	assert.NoError(f.t, r.ParseForm())
	params := r.Form

	assert.Equal(f.t, testPublicKey, params.Get("api_key"))
	assert.Equal(f.t, "json", params.Get("response_type"))
	want := Signature(testPrivateKey, r.Method, params.Get("method"), params.Get("timestamp"), params.Get("nonce"), params)
	if !assert.Equal(f.t, want, params.Get("sig"), "signature for %s", params.Get("method")) {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}

	method := params.Get("method")
	if method == "Auth_GetUserToken" {
		assert.Equal(f.t, http.MethodPost, r.Method)
		n := atomic.AddInt32(&f.authCalls, 1)
		token := fmt.Sprintf("token-%d", n)
		fmt.Fprintf(w, `{"success":true,"body":{"token":%q,"userId":1}}`, token)
		return
	}

	if params.Get("userToken") == "" {
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"success":false,"body":{"error":{"errorCode":"AuthRequired","httpResponse":401,"message":"no token"}}}`)
		return
	}
	if atomic.CompareAndSwapInt32(&f.rejectOnce, 1, 0) {
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"success":false,"body":{"error":{"errorCode":"InvalidUserToken","httpResponse":401,"message":"expired"}}}`)
		return
	}

	h, ok := f.handlers[method]
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, `{"success":false,"body":{"error":{"errorCode":"InvalidMethod","httpResponse":404,"message":"unknown method"}}}`)
		return
	}
	status, body := h(params)
	w.WriteHeader(status)
	fmt.Fprint(w, body)
}

func newTestClient(t *testing.T, api *fakeAPI) *Client {
	api.t = t
	srv := httptest.NewServer(api)
	t.Cleanup(srv.Close)

	var n int64
	return NewClient(Config{
		BaseURL:    srv.URL + "/v1/",
		PublicKey:  testPublicKey,
		PrivateKey: testPrivateKey,
		Username:   "captain",
		Password:   "hunter2",
	}, WithHTTPClient(srv.Client()), WithClock(
		func() time.Time { return time.Unix(1718000000, 0) },
		func() string { return fmt.Sprintf("nonce-%d", atomic.AddInt64(&n, 1)) },
	))
}

func TestSignature(t *testing.T) {
	params := url.Values{}
	params.Set("teamId", "7")
	params.Set("api_key", "Pub")
	params.Set("sig", "ignored")

	a := Signature("priv", "get", "User_GetTeamEvents", "100", "abc", params)
	b := Signature("priv", "GET", "User_GetTeamEvents", "100", "abc", url.Values{"api_key": {"Pub"}, "teamId": {"7"}})
	assert.Equal(t, a, b, "sig is excluded and the http method is upper-cased")
	assert.Len(t, a, 40)

	// values are case-folded before hashing
	c := Signature("priv", "GET", "User_GetTeamEvents", "100", "abc", url.Values{"api_key": {"PUB"}, "teamId": {"7"}})
	assert.Equal(t, a, c)

	d := Signature("other", "GET", "User_GetTeamEvents", "100", "abc", url.Values{"api_key": {"Pub"}, "teamId": {"7"}})
	assert.NotEqual(t, a, d)
}

func TestRawURLEncode(t *testing.T) {
	assert.Equal(t, "a%20b%26c", rawURLEncode("a b&c"))
}

func TestClient_TeamsAuthenticatesOnce(t *testing.T) {
	api := &fakeAPI{handlers: map[string]func(url.Values) (int, string){
		"User_GetTeams": func(url.Values) (int, string) {
			return 200, `{"success":true,"body":[{"teamId":7,"name":"Trouble Blueing"},{"teamId":8,"name":"Others"}]}`
		},
	}}
	c := newTestClient(t, api)

	for i := 0; i < 2; i++ {
		teams, err := c.Teams(context.Background())
		require.NoError(t, err)
		require.Len(t, teams, 2)
		assert.Equal(t, int64(7), teams[0].TeamID)
		assert.Equal(t, "Trouble Blueing", teams[0].Name)
	}
	assert.Equal(t, int32(1), atomic.LoadInt32(&api.authCalls))
}

func TestClient_ReauthenticatesOnRejectedToken(t *testing.T) {
	api := &fakeAPI{rejectOnce: 1, handlers: map[string]func(url.Values) (int, string){
		"User_GetTeams": func(url.Values) (int, string) {
			return 200, `{"success":true,"body":[]}`
		},
	}}
	c := newTestClient(t, api)

	teams, err := c.Teams(context.Background())
	require.NoError(t, err)
	assert.Empty(t, teams)
	assert.Equal(t, int32(2), atomic.LoadInt32(&api.authCalls))
}

func TestClient_TeamEventsAndAttendance(t *testing.T) {
	api := &fakeAPI{handlers: map[string]func(url.Values) (int, string){
		"User_GetTeamEvents": func(p url.Values) (int, string) {
			assert.Equal(t, "7", p.Get("teamId"))
			return 200, `{"success":true,"body":[{
				"eventId": 55, "eventType": "game", "status": "normal", "title": "Rivals", "homeAway": "Home",
				"team": {"teamId": 7},
				"location": {"name": "Field 3", "address": {"displayMultiLine": "123 Main St\nSeattle, WA"}},
				"shirtColors": {"team1": null, "team2": {"title": "Blue"}},
				"dateTimeInfo": {"startDateLocal": "2024-06-12", "startDateLocalDisplay": "Jun 12", "startTimeLocalDisplay": "7:00 PM"},
				"dateCreatedUtc": "2024-06-01 10:00:00", "dateLastUpdatedUtc": "2024-06-09 08:30:00"
			}]}`
		},
		"Event_GetAttendanceList": func(p url.Values) (int, string) {
			assert.Equal(t, "55", p.Get("eventId"))
			return 200, `{"success":true,"body":{
				"countsByStatus": [{"status": "yes", "counts": {"total": 5, "byGender": {"m": 3, "f": 2, "other": 0}}}],
				"users": [{"user": {"userId": 101}, "rsvpInfo": {"status": "yes", "statusDisplay": "Yes"}}]
			}}`
		},
	}}
	c := newTestClient(t, api)
	ctx := context.Background()

	events, err := c.TeamEvents(ctx, 7)
	require.NoError(t, err)
	require.Len(t, events, 1)
	e := events[0]
	assert.Equal(t, int64(55), e.EventID)
	assert.Nil(t, e.ShirtColors.Team1)
	assert.Equal(t, "Blue", e.ShirtColors.Team2.Title)
	assert.Equal(t, "2024-06-12", e.DateTimeInfo.StartDateLocal)
	assert.Equal(t, "123 Main St\nSeattle, WA", e.Location.Address.DisplayMultiLine)

	list, err := c.AttendanceList(ctx, 7, 55)
	require.NoError(t, err)
	require.Len(t, list.CountsByStatus, 1)
	assert.Equal(t, 3, list.CountsByStatus[0].Counts.ByGender.M)
	assert.Equal(t, int64(101), list.Users[0].User.UserID)
	assert.Equal(t, "Yes", list.Users[0].RSVPInfo.StatusDisplay)
}

func TestClient_APIError(t *testing.T) {
	api := &fakeAPI{handlers: map[string]func(url.Values) (int, string){
		"Team_GetRoster": func(url.Values) (int, string) {
			return 403, `{"success":false,"body":{"error":{"errorCode":"Forbidden","httpResponse":403,"message":"not a manager"}}}`
		},
	}}
	c := newTestClient(t, api)

	_, err := c.Roster(context.Background(), 7)
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "Forbidden", apiErr.ErrorCode)
	assert.Equal(t, "Team_GetRoster", apiErr.Method)
	assert.True(t, apiErr.Unauthorized())
}

func TestClient_NonJSONFailure(t *testing.T) {
	api := &fakeAPI{handlers: map[string]func(url.Values) (int, string){
		"User_GetTeams": func(url.Values) (int, string) { return 502, "<html>bad gateway</html>" },
	}}
	c := newTestClient(t, api)

	_, err := c.Teams(context.Background())
	var statusErr *commonhttp.StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, 502, statusErr.StatusCode)
}
