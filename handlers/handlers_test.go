package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"hotel-booking/availability"
	"hotel-booking/database"
	"hotel-booking/middleware"
	"hotel-booking/models"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type testServer struct {
	t      *testing.T
	router *gin.Engine
	store  database.Store
	admin  string
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	ctx := context.Background()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	store, err := database.InitDatabase(ctx, database.Options{Driver: database.DriverSQLite, Path: dsn})
	require.NoError(t, err)
	t.Cleanup(func() { store.Close(ctx) })

	require.NoError(t, database.EnsureAdmin(ctx, store, database.AdminAccount{Username: "admin", Password: "password"}))

	h := New(store, availability.NewEngine(store, nil, 0), middleware.NewJWT("test-secret", 0), false)
	s := &testServer{t: t, router: NewRouter(h, nil), store: store}
	s.admin = s.login("admin", "password")
	return s
}

func (s *testServer) do(method, path, token string, body interface{}) *httptest.ResponseRecorder {
	s.t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(s.t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *testServer) decode(w *httptest.ResponseRecorder, out interface{}) {
	s.t.Helper()
	require.NoError(s.t, json.Unmarshal(w.Body.Bytes(), out), w.Body.String())
}

func (s *testServer) register(username string) {
	s.t.Helper()
	w := s.do(http.MethodPost, "/api/auth/register", "", gin.H{
		"username": username,
		"email":    username + "@example.com",
		"password": "pw-" + username,
	})
	require.Equal(s.t, http.StatusCreated, w.Code, w.Body.String())
}

func (s *testServer) login(username, password string) string {
	s.t.Helper()
	w := s.do(http.MethodPost, "/api/auth/login", "", gin.H{"username": username, "password": password})
	require.Equal(s.t, http.StatusOK, w.Code, w.Body.String())
	var resp struct {
		Token string `json:"token"`
	}
	s.decode(w, &resp)
	require.NotEmpty(s.t, resp.Token)
	return resp.Token
}

func (s *testServer) createHotel(name string, photos ...string) models.Hotel {
	s.t.Helper()
	w := s.do(http.MethodPost, "/api/hotel", s.admin, gin.H{
		"name":          name,
		"type":          "hotel",
		"city":          "Berlin",
		"address":       "1 Main St",
		"cheapestPrice": 90,
		"photos":        photos,
	})
	require.Equal(s.t, http.StatusCreated, w.Code, w.Body.String())
	var hotel models.Hotel
	s.decode(w, &hotel)
	return hotel
}

func (s *testServer) createRoom(hotelID string, numbers ...int) models.Room {
	s.t.Helper()
	w := s.do(http.MethodPost, "/api/room/"+hotelID, s.admin, gin.H{
		"title":       "Double",
		"price":       120,
		"maxPeople":   2,
		"roomNumbers": numbers,
	})
	require.Equal(s.t, http.StatusCreated, w.Code, w.Body.String())
	var room models.Room
	s.decode(w, &room)
	return room
}

func errorBody(s *testServer, w *httptest.ResponseRecorder) middleware.ErrorBody {
	var body middleware.ErrorBody
	s.decode(w, &body)
	return body
}

func TestRegisterAndLogin(t *testing.T) {
	s := newTestServer(t)
	s.register("alice")

	w := s.do(http.MethodPost, "/api/auth/register", "", gin.H{
		"username": "alice", "email": "other@example.com", "password": "x",
	})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "username taken", errorBody(s, w).Message)

	w = s.do(http.MethodPost, "/api/auth/register", "", gin.H{
		"username": "bob", "email": "alice@example.com", "password": "x",
	})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "email taken", errorBody(s, w).Message)

	w = s.do(http.MethodPost, "/api/auth/register", "", gin.H{"username": "carol"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	wrongPassword := s.do(http.MethodPost, "/api/auth/login", "", gin.H{"username": "alice", "password": "nope"})
	unknownUser := s.do(http.MethodPost, "/api/auth/login", "", gin.H{"username": "nobody", "password": "nope"})
	assert.Equal(t, http.StatusUnauthorized, wrongPassword.Code)
	assert.Equal(t, wrongPassword.Code, unknownUser.Code)
	assert.Equal(t, wrongPassword.Body.String(), unknownUser.Body.String())
	assert.Equal(t, "invalid credentials", errorBody(s, wrongPassword).Message)

	w = s.do(http.MethodPost, "/api/auth/login", "", gin.H{"username": "alice", "password": "pw-alice"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, w.Body.String(), "password")
	var cookie *http.Cookie
	for _, c := range w.Result().Cookies() {
		if c.Name == middleware.CookieName {
			cookie = c
		}
	}
	require.NotNil(t, cookie)
	assert.True(t, cookie.HttpOnly)

	var user struct {
		models.User
		Token string `json:"token"`
	}
	s.decode(w, &user)
	assert.Equal(t, "alice", user.Username)
	assert.False(t, user.IsAdmin)
}

func TestNonAdminCannotCreateHotel(t *testing.T) {
	s := newTestServer(t)
	s.register("alice")
	token := s.login("alice", "pw-alice")

	w := s.do(http.MethodPost, "/api/hotel", token, gin.H{
		"name": "Sneaky", "type": "hotel", "city": "Berlin", "address": "x", "cheapestPrice": 10,
	})
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "you are not authorized", errorBody(s, w).Message)

	w = s.do(http.MethodPost, "/api/hotel", "", gin.H{"name": "Anon"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	hotels, err := s.store.ListHotels(context.Background(), database.HotelFilter{})
	require.NoError(t, err)
	assert.Empty(t, hotels)
}

func TestHotelCRUD(t *testing.T) {
	s := newTestServer(t)
	hotel := s.createHotel("Sea View", "a.jpg", "b.jpg")
	assert.Equal(t, []string{"a.jpg", "b.jpg"}, []string(hotel.Photos))

	w := s.do(http.MethodGet, "/api/hotel/find/"+hotel.ID, "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var got models.Hotel
	s.decode(w, &got)
	assert.Equal(t, []string{"a.jpg", "b.jpg"}, []string(got.Photos))
	assert.Contains(t, w.Body.String(), `"_id":"`+hotel.ID+`"`)

	w = s.do(http.MethodPost, "/api/hotel", s.admin, gin.H{
		"name": "Bad", "type": "castle", "city": "Berlin", "address": "x",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(http.MethodPut, "/api/hotel/"+hotel.ID, s.admin, gin.H{"featured": true, "cheapestPrice": 75})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	s.decode(w, &got)
	assert.True(t, got.Featured)
	assert.Equal(t, 75, got.CheapestPrice)
	assert.Equal(t, "Sea View", got.Name)

	w = s.do(http.MethodGet, "/api/hotel?featured=true&min=50&max=100", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var list []models.Hotel
	s.decode(w, &list)
	require.Len(t, list, 1)

	w = s.do(http.MethodGet, "/api/hotel?min=abc", "", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(http.MethodGet, "/api/hotel/countByCity?cities=Berlin,Madrid", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[1,0]`, w.Body.String())

	w = s.do(http.MethodGet, "/api/hotel/countByCity", "", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(http.MethodGet, "/api/hotel/countByType", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var counts []models.TypeCount
	s.decode(w, &counts)
	require.Len(t, counts, 5)
	assert.Equal(t, models.TypeCount{Type: "hotel", Count: 1}, counts[0])

	w = s.do(http.MethodGet, "/api/hotel/find/missing", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, middleware.ErrorBody{Success: false, Status: 404, Message: "not found"}, errorBody(s, w))
}

func TestDeleteHotelRemovesRooms(t *testing.T) {
	s := newTestServer(t)
	hotel := s.createHotel("A")
	room := s.createRoom(hotel.ID, 1, 2)

	w := s.do(http.MethodGet, "/api/hotel/room/"+hotel.ID, "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var rooms []models.Room
	s.decode(w, &rooms)
	require.Len(t, rooms, 1)
	assert.Equal(t, room.ID, rooms[0].ID)

	w = s.do(http.MethodDelete, "/api/hotel/"+hotel.ID, s.admin, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = s.do(http.MethodGet, "/api/room/"+room.ID, "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRoomCRUD(t *testing.T) {
	s := newTestServer(t)
	hotel := s.createHotel("A")

	w := s.do(http.MethodPost, "/api/room/"+hotel.ID, s.admin, gin.H{
		"title": "Dup", "price": 10, "maxPeople": 1, "roomNumbers": []int{1, 1},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(http.MethodPost, "/api/room/missing", s.admin, gin.H{
		"title": "Orphan", "price": 10, "maxPeople": 1,
	})
	assert.Equal(t, http.StatusNotFound, w.Code)

	room := s.createRoom(hotel.ID, 101, 102)
	require.Len(t, room.RoomNumbers, 2)

	w = s.do(http.MethodPut, "/api/room/"+room.ID, s.admin, gin.H{"price": 150, "roomNumbers": []int{102, 103}})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var updated models.Room
	s.decode(w, &updated)
	assert.Equal(t, 150, updated.Price)
	require.Len(t, updated.RoomNumbers, 2)
	assert.Equal(t, room.RoomNumbers[1].ID, updated.RoomNumbers[0].ID)
	assert.Equal(t, 103, updated.RoomNumbers[1].Number)

	w = s.do(http.MethodGet, "/api/room", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var rooms []models.Room
	s.decode(w, &rooms)
	assert.Len(t, rooms, 1)

	w = s.do(http.MethodDelete, "/api/room/"+room.ID+"?hotelId=wrong", s.admin, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = s.do(http.MethodDelete, "/api/room/"+room.ID+"?hotelId="+hotel.ID, s.admin, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = s.do(http.MethodGet, "/api/hotel/find/"+hotel.ID, "", nil)
	var got models.Hotel
	s.decode(w, &got)
	assert.Empty(t, got.Rooms)
}

func TestReserveFlow(t *testing.T) {
	s := newTestServer(t)
	hotel := s.createHotel("A")
	room := s.createRoom(hotel.ID, 1, 2, 3)
	a, b := room.RoomNumbers[0], room.RoomNumbers[1]
	s.register("alice")
	token := s.login("alice", "pw-alice")

	reserve := gin.H{"unitIds": []string{a.ID}, "checkIn": "2025-03-10", "checkOut": "2025-03-12"}
	w := s.do(http.MethodPost, "/api/room/reserve", "", reserve)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = s.do(http.MethodPost, "/api/room/reserve", token, reserve)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = s.do(http.MethodGet, "/api/room/"+room.ID+"/availability?checkIn=2025-03-11&checkOut=2025-03-15", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var report availability.Report
	s.decode(w, &report)
	assert.Equal(t, 2, report.Available)
	assert.False(t, report.Units[0].Available)
	assert.True(t, report.Units[1].Available)

	// overlapping stay: a conflicts, b succeeds
	w = s.do(http.MethodPost, "/api/room/reserve", token, gin.H{
		"unitIds": []string{a.ID, b.ID}, "checkIn": "2025-03-12", "checkOut": "2025-03-13",
	})
	require.Equal(t, http.StatusMultiStatus, w.Code, w.Body.String())
	var batch struct {
		Success bool                  `json:"success"`
		Results []availability.Result `json:"results"`
	}
	s.decode(w, &batch)
	assert.False(t, batch.Success)
	require.Len(t, batch.Results, 2)
	assert.Equal(t, availability.StatusConflict, batch.Results[0].Status)
	assert.Equal(t, availability.StatusReserved, batch.Results[1].Status)

	w = s.do(http.MethodPost, "/api/room/reserve", token, gin.H{
		"unitIds": []string{a.ID}, "checkIn": "2025-03-10", "checkOut": "2025-03-10",
	})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = s.do(http.MethodPost, "/api/room/reserve", token, gin.H{
		"unitIds": []string{a.ID}, "checkIn": "2025-03-12", "checkOut": "2025-03-10",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(http.MethodGet, "/api/room/"+room.ID+"/availability?checkIn=bad&checkOut=2025-03-10", "", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUpdateRoomAvailability(t *testing.T) {
	s := newTestServer(t)
	hotel := s.createHotel("A")
	room := s.createRoom(hotel.ID, 7)
	unit := room.RoomNumbers[0]
	s.register("alice")
	token := s.login("alice", "pw-alice")

	w := s.do(http.MethodPut, "/api/room/availability/"+unit.ID, token, gin.H{
		"dates": []string{"2025-03-10T00:00:00.000Z", "2025-03-11"},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), "Room status has been updated.")

	w = s.do(http.MethodPut, "/api/room/availability/"+unit.ID, token, gin.H{"dates": []string{"2025-03-11", "2025-03-12"}})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "dates already booked", errorBody(s, w).Message)

	w = s.do(http.MethodPut, "/api/room/availability/missing", token, gin.H{"dates": []string{"2025-04-01"}})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = s.do(http.MethodPut, "/api/room/availability/"+unit.ID, token, gin.H{"dates": []string{}})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(http.MethodGet, "/api/room/"+room.ID, "", nil)
	var got models.Room
	s.decode(w, &got)
	assert.Equal(t,
		[]models.UnitDate{{Date: "2025-03-10"}, {Date: "2025-03-11"}},
		got.RoomNumbers[0].UnavailableDates)
	assert.Contains(t, w.Body.String(), `"unavailableDates":["2025-03-10","2025-03-11"]`)
}

func TestPasswordLength(t *testing.T) {
	s := newTestServer(t)

	w := s.do(http.MethodPost, "/api/auth/register", "", gin.H{
		"username": "carol", "email": "carol@example.com", "password": strings.Repeat("p", 80),
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// 30 runes but 90 bytes: passes binding, rejected when hashing
	w = s.do(http.MethodPost, "/api/auth/register", "", gin.H{
		"username": "carol", "email": "carol@example.com", "password": strings.Repeat("密", 30),
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "password must be at most 72 bytes", errorBody(s, w).Message)

	s.register("dave")
	dave, err := s.store.GetUserByUsername(context.Background(), "dave")
	require.NoError(t, err)
	w = s.do(http.MethodPut, "/api/user/"+dave.ID, s.login("dave", "pw-dave"), gin.H{"password": strings.Repeat("p", 73)})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	s.login("dave", "pw-dave")
}

func TestUserRoutes(t *testing.T) {
	s := newTestServer(t)
	s.register("alice")
	s.register("bob")
	alice, err := s.store.GetUserByUsername(context.Background(), "alice")
	require.NoError(t, err)
	bob, err := s.store.GetUserByUsername(context.Background(), "bob")
	require.NoError(t, err)
	token := s.login("alice", "pw-alice")

	w := s.do(http.MethodGet, "/api/user", token, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	w = s.do(http.MethodGet, "/api/user", s.admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var users []models.User
	s.decode(w, &users)
	assert.Len(t, users, 3)

	w = s.do(http.MethodGet, "/api/user/"+bob.ID, token, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = s.do(http.MethodPut, "/api/user/"+alice.ID, token, gin.H{"city": "Goa", "password": "new-pw"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var updated models.User
	s.decode(w, &updated)
	assert.Equal(t, "Goa", updated.City)
	s.login("alice", "new-pw")

	w = s.do(http.MethodDelete, "/api/user/"+bob.ID, s.admin, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	w = s.do(http.MethodGet, "/api/user/"+bob.ID, s.admin, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestExportOccupancy(t *testing.T) {
	s := newTestServer(t)
	hotel := s.createHotel("Sea View")
	room := s.createRoom(hotel.ID, 1, 2)
	require.NoError(t, s.store.AddUnavailableDates(context.Background(), room.RoomNumbers[0].ID, []string{"2025-03-10", "2025-03-11"}))

	w := s.do(http.MethodGet, "/api/hotel/occupancy/"+hotel.ID, s.admin, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, xlsxMIME, w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "attachment")

	f, err := excelize.OpenReader(bytes.NewReader(w.Body.Bytes()))
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows(occupancySheet)
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(rows), 3)
	assert.Equal(t, "Room", rows[0][0])
	assert.Equal(t, []string{"Double", "120", "1", "2", "2025-03-10, 2025-03-11"}, rows[1])
	assert.Equal(t, "2", rows[2][2])

	s.register("alice")
	w = s.do(http.MethodGet, "/api/hotel/occupancy/"+hotel.ID, s.login("alice", "pw-alice"), nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
}
