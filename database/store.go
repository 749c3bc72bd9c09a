package database

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"go.mongodb.org/mongo-driver/bson"

	"hotel-booking/models"
)

var (
	// ErrNotFound is returned when a hotel, room, unit or user does not exist.
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned when a unit already has one of the requested dates.
	ErrConflict = errors.New("dates already booked")
	// ErrUsernameTaken and ErrEmailTaken reject duplicate registrations.
	ErrUsernameTaken = errors.New("username taken")
	ErrEmailTaken    = errors.New("email taken")
)

// Default price bounds of the hotel list query. Both are exclusive.
const (
	DefaultMinPrice = 1
	DefaultMaxPrice = 999999
)

// Store is the persistence boundary shared by the SQL and Mongo backends.
type Store interface {
	Close(ctx context.Context) error

	CreateHotel(ctx context.Context, hotel *models.Hotel) error
	UpdateHotel(ctx context.Context, id string, upd HotelUpdate) (*models.Hotel, error)
	// DeleteHotel removes the hotel together with all of its rooms.
	DeleteHotel(ctx context.Context, id string) error
	GetHotel(ctx context.Context, id string) (*models.Hotel, error)
	ListHotels(ctx context.Context, filter HotelFilter) ([]models.Hotel, error)
	CountByCity(ctx context.Context, cities []string) ([]int64, error)
	CountByType(ctx context.Context) ([]models.TypeCount, error)
	HotelRooms(ctx context.Context, hotelID string) ([]models.Room, error)

	CreateRoom(ctx context.Context, hotelID string, room *models.Room) error
	UpdateRoom(ctx context.Context, id string, upd RoomUpdate) (*models.Room, error)
	// DeleteRoom removes a room. A non-empty hotelID must match the owner.
	DeleteRoom(ctx context.Context, id, hotelID string) error
	GetRoom(ctx context.Context, id string) (*models.Room, error)
	ListRooms(ctx context.Context) ([]models.Room, error)

	// AddUnavailableDates marks the unit occupied on every date, or on none of
	// them: if any date is already present it fails with ErrConflict.
	AddUnavailableDates(ctx context.Context, unitID string, dates []string) error

	CreateUser(ctx context.Context, user *models.User) error
	GetUser(ctx context.Context, id string) (*models.User, error)
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
	ListUsers(ctx context.Context) ([]models.User, error)
	UpdateUser(ctx context.Context, id string, upd UserUpdate) (*models.User, error)
	DeleteUser(ctx context.Context, id string) error
}

// HotelFilter holds the list query of GET /hotel.
type HotelFilter struct {
	City     string
	Type     string
	Featured *bool
	Min      int
	Max      int
	Limit    int
}

func (f HotelFilter) bounds() (int, int) {
	min, max := f.Min, f.Max
	if min <= 0 {
		min = DefaultMinPrice
	}
	if max <= 0 {
		max = DefaultMaxPrice
	}
	return min, max
}

// HotelUpdate is a partial hotel update; nil fields are left untouched.
type HotelUpdate struct {
	Name          *string
	Type          *string
	City          *string
	Address       *string
	Distance      *string
	Title         *string
	Desc          *string
	CheapestPrice *int
	Rating        *float64
	Featured      *bool
	Photos        []string
}

type updateField struct {
	column string
	key    string
	value  interface{}
}

func (u HotelUpdate) fields() []updateField {
	var out []updateField
	add := func(column, key string, set bool, value interface{}) {
		if set {
			out = append(out, updateField{column, key, value})
		}
	}
	add("name", "name", u.Name != nil, deref(u.Name))
	add("type", "type", u.Type != nil, deref(u.Type))
	add("city", "city", u.City != nil, deref(u.City))
	add("address", "address", u.Address != nil, deref(u.Address))
	add("distance", "distance", u.Distance != nil, deref(u.Distance))
	add("title", "title", u.Title != nil, deref(u.Title))
	add("desc", "desc", u.Desc != nil, deref(u.Desc))
	if u.CheapestPrice != nil {
		out = append(out, updateField{"cheapest_price", "cheapestPrice", *u.CheapestPrice})
	}
	if u.Rating != nil {
		out = append(out, updateField{"rating", "rating", *u.Rating})
	}
	if u.Featured != nil {
		out = append(out, updateField{"featured", "featured", *u.Featured})
	}
	if u.Photos != nil {
		out = append(out, updateField{"photos", "photos", pq.StringArray(cleanPhotos(u.Photos))})
	}
	return out
}

// RoomUpdate is a partial room update. A non-nil Numbers replaces the unit
// list: listed numbers that already exist keep their occupied dates.
type RoomUpdate struct {
	Title     *string
	Price     *int
	MaxPeople *int
	Desc      *string
	Numbers   []int
}

func (u RoomUpdate) fields() []updateField {
	var out []updateField
	if u.Title != nil {
		out = append(out, updateField{"title", "title", *u.Title})
	}
	if u.Price != nil {
		out = append(out, updateField{"price", "price", *u.Price})
	}
	if u.MaxPeople != nil {
		out = append(out, updateField{"max_people", "maxPeople", *u.MaxPeople})
	}
	if u.Desc != nil {
		out = append(out, updateField{"desc", "desc", *u.Desc})
	}
	return out
}

// UserUpdate is a partial profile update. Password must already be hashed.
type UserUpdate struct {
	Email    *string
	Password *string
	Country  *string
	City     *string
	Phone    *string
	Img      *string
}

func (u UserUpdate) fields() []updateField {
	var out []updateField
	add := func(column, key string, v *string) {
		if v != nil {
			out = append(out, updateField{column, key, *v})
		}
	}
	add("email", "email", u.Email)
	add("password", "password", u.Password)
	add("country", "country", u.Country)
	add("city", "city", u.City)
	add("phone", "phone", u.Phone)
	add("img", "img", u.Img)
	return out
}

func columnMap(fields []updateField) map[string]interface{} {
	m := make(map[string]interface{}, len(fields))
	for _, f := range fields {
		m[f.column] = f.value
	}
	return m
}

func bsonSet(fields []updateField) bson.M {
	m := bson.M{"updatedAt": time.Now()}
	for _, f := range fields {
		m[f.key] = f.value
	}
	return m
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// NewID returns a fresh document identifier.
func NewID() string {
	return uuid.NewString()
}

// cleanPhotos trims entries and drops empty ones, keeping order.
func cleanPhotos(photos []string) []string {
	out := make([]string, 0, len(photos))
	for _, p := range photos {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func prepareHotel(hotel *models.Hotel) {
	if hotel.ID == "" {
		hotel.ID = NewID()
	}
	hotel.Photos = cleanPhotos(hotel.Photos)
	hotel.Rooms = []string{}
}

func prepareRoom(hotelID string, room *models.Room) {
	if room.ID == "" {
		room.ID = NewID()
	}
	room.HotelID = hotelID
	if room.RoomNumbers == nil {
		room.RoomNumbers = []models.RoomUnit{}
	}
	for i := range room.RoomNumbers {
		room.RoomNumbers[i].ID = NewID()
		room.RoomNumbers[i].RoomID = room.ID
		room.RoomNumbers[i].UnavailableDates = []models.UnitDate{}
	}
}

func normalizeHotel(hotel *models.Hotel) {
	if hotel.Photos == nil {
		hotel.Photos = []string{}
	}
	if hotel.Rooms == nil {
		hotel.Rooms = []string{}
	}
}

func normalizeRoom(room *models.Room) {
	if room.RoomNumbers == nil {
		room.RoomNumbers = []models.RoomUnit{}
	}
	for i := range room.RoomNumbers {
		room.RoomNumbers[i].RoomID = room.ID
		if room.RoomNumbers[i].UnavailableDates == nil {
			room.RoomNumbers[i].UnavailableDates = []models.UnitDate{}
		}
	}
}

func uniqueDates(dates []string) []string {
	seen := make(map[string]struct{}, len(dates))
	out := make([]string, 0, len(dates))
	for _, d := range dates {
		if _, ok := seen[d]; ok {
			continue
		}
		seen[d] = struct{}{}
		out = append(out, d)
	}
	return out
}

// diffNumbers splits the wanted unit numbers into the ones to add and the
// existing units to drop.
func diffNumbers(existing []models.RoomUnit, wanted []int) (add []int, drop []models.RoomUnit) {
	want := make(map[int]bool, len(wanted))
	for _, n := range wanted {
		want[n] = true
	}
	have := make(map[int]bool, len(existing))
	for _, u := range existing {
		have[u.Number] = true
		if !want[u.Number] {
			drop = append(drop, u)
		}
	}
	for _, n := range wanted {
		if !have[n] {
			add = append(add, n)
			have[n] = true
		}
	}
	return add, drop
}
