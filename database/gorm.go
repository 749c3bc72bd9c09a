package database

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"hotel-booking/models"
)

type gormStore struct {
	db *gorm.DB
}

func (s *gormStore) Close(context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

// withUnits preloads units ordered by number and their dates ordered by day.
func withUnits(db *gorm.DB) *gorm.DB {
	return db.
		Preload("RoomNumbers", func(db *gorm.DB) *gorm.DB { return db.Order("number") }).
		Preload("RoomNumbers.UnavailableDates", func(db *gorm.DB) *gorm.DB { return db.Order("date") })
}

func (s *gormStore) CreateHotel(ctx context.Context, hotel *models.Hotel) error {
	prepareHotel(hotel)
	return s.db.WithContext(ctx).Create(hotel).Error
}

func (s *gormStore) UpdateHotel(ctx context.Context, id string, upd HotelUpdate) (*models.Hotel, error) {
	db := s.db.WithContext(ctx)
	if fields := upd.fields(); len(fields) > 0 {
		res := db.Model(&models.Hotel{}).Where("id = ?", id).Updates(columnMap(fields))
		if res.Error != nil {
			return nil, res.Error
		}
		if res.RowsAffected == 0 {
			return nil, ErrNotFound
		}
	}
	return s.GetHotel(ctx, id)
}

func (s *gormStore) DeleteHotel(ctx context.Context, id string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var hotel models.Hotel
		if err := tx.Select("id").First(&hotel, "id = ?", id).Error; err != nil {
			return notFound(err)
		}
		var roomIDs []string
		if err := tx.Model(&models.Room{}).Where("hotel_id = ?", id).Pluck("id", &roomIDs).Error; err != nil {
			return err
		}
		if err := deleteRooms(tx, roomIDs); err != nil {
			return err
		}
		return tx.Delete(&models.Hotel{}, "id = ?", id).Error
	})
}

// deleteRooms removes rooms with their units and occupied dates.
func deleteRooms(tx *gorm.DB, roomIDs []string) error {
	if len(roomIDs) == 0 {
		return nil
	}
	var unitIDs []string
	if err := tx.Model(&models.RoomUnit{}).Where("room_id IN ?", roomIDs).Pluck("id", &unitIDs).Error; err != nil {
		return err
	}
	if err := deleteUnits(tx, unitIDs); err != nil {
		return err
	}
	return tx.Delete(&models.Room{}, "id IN ?", roomIDs).Error
}

func deleteUnits(tx *gorm.DB, unitIDs []string) error {
	if len(unitIDs) == 0 {
		return nil
	}
	if err := tx.Delete(&models.UnitDate{}, "room_unit_id IN ?", unitIDs).Error; err != nil {
		return err
	}
	return tx.Delete(&models.RoomUnit{}, "id IN ?", unitIDs).Error
}

func (s *gormStore) GetHotel(ctx context.Context, id string) (*models.Hotel, error) {
	db := s.db.WithContext(ctx)
	var hotel models.Hotel
	if err := db.First(&hotel, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	if err := db.Model(&models.Room{}).Where("hotel_id = ?", id).Order("created_at, id").Pluck("id", &hotel.Rooms).Error; err != nil {
		return nil, err
	}
	normalizeHotel(&hotel)
	return &hotel, nil
}

func (s *gormStore) ListHotels(ctx context.Context, filter HotelFilter) ([]models.Hotel, error) {
	db := s.db.WithContext(ctx)
	min, max := filter.bounds()
	query := db.Model(&models.Hotel{}).Where("cheapest_price > ? AND cheapest_price < ?", min, max)
	if filter.City != "" {
		query = query.Where("city = ?", filter.City)
	}
	if filter.Type != "" {
		query = query.Where("type = ?", filter.Type)
	}
	if filter.Featured != nil {
		query = query.Where("featured = ?", *filter.Featured)
	}
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}

	var hotels []models.Hotel
	if err := query.Order("created_at, id").Find(&hotels).Error; err != nil {
		return nil, err
	}
	if len(hotels) == 0 {
		return []models.Hotel{}, nil
	}

	ids := make([]string, len(hotels))
	for i := range hotels {
		ids[i] = hotels[i].ID
	}
	var owned []struct {
		ID      string
		HotelID string
	}
	if err := db.Model(&models.Room{}).Select("id, hotel_id").Where("hotel_id IN ?", ids).Order("created_at, id").Scan(&owned).Error; err != nil {
		return nil, err
	}
	byHotel := make(map[string][]string, len(hotels))
	for _, o := range owned {
		byHotel[o.HotelID] = append(byHotel[o.HotelID], o.ID)
	}
	for i := range hotels {
		hotels[i].Rooms = byHotel[hotels[i].ID]
		normalizeHotel(&hotels[i])
	}
	return hotels, nil
}

func (s *gormStore) CountByCity(ctx context.Context, cities []string) ([]int64, error) {
	db := s.db.WithContext(ctx)
	counts := make([]int64, len(cities))
	for i, city := range cities {
		if err := db.Model(&models.Hotel{}).Where("city = ?", strings.TrimSpace(city)).Count(&counts[i]).Error; err != nil {
			return nil, err
		}
	}
	return counts, nil
}

func (s *gormStore) CountByType(ctx context.Context) ([]models.TypeCount, error) {
	db := s.db.WithContext(ctx)
	types := models.GetHotelTypes()
	result := make([]models.TypeCount, len(types))
	for i, t := range types {
		result[i].Type = t
		if err := db.Model(&models.Hotel{}).Where("type = ?", t).Count(&result[i].Count).Error; err != nil {
			return nil, err
		}
	}
	return result, nil
}

func (s *gormStore) HotelRooms(ctx context.Context, hotelID string) ([]models.Room, error) {
	db := s.db.WithContext(ctx)
	var count int64
	if err := db.Model(&models.Hotel{}).Where("id = ?", hotelID).Count(&count).Error; err != nil {
		return nil, err
	}
	if count == 0 {
		return nil, ErrNotFound
	}
	rooms := []models.Room{}
	if err := withUnits(db).Where("hotel_id = ?", hotelID).Order("created_at, id").Find(&rooms).Error; err != nil {
		return nil, err
	}
	for i := range rooms {
		normalizeRoom(&rooms[i])
	}
	return rooms, nil
}

func (s *gormStore) CreateRoom(ctx context.Context, hotelID string, room *models.Room) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var hotel models.Hotel
		if err := tx.Select("id").First(&hotel, "id = ?", hotelID).Error; err != nil {
			return notFound(err)
		}
		prepareRoom(hotelID, room)
		if err := tx.Omit("RoomNumbers").Create(room).Error; err != nil {
			return err
		}
		if len(room.RoomNumbers) == 0 {
			return nil
		}
		return tx.Omit("UnavailableDates").Create(&room.RoomNumbers).Error
	})
}

func (s *gormStore) UpdateRoom(ctx context.Context, id string, upd RoomUpdate) (*models.Room, error) {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var room models.Room
		if err := tx.Preload("RoomNumbers").First(&room, "id = ?", id).Error; err != nil {
			return notFound(err)
		}
		if fields := upd.fields(); len(fields) > 0 {
			if err := tx.Model(&room).Updates(columnMap(fields)).Error; err != nil {
				return err
			}
		}
		if upd.Numbers == nil {
			return nil
		}
		add, drop := diffNumbers(room.RoomNumbers, upd.Numbers)
		dropIDs := make([]string, len(drop))
		for i, u := range drop {
			dropIDs[i] = u.ID
		}
		if err := deleteUnits(tx, dropIDs); err != nil {
			return err
		}
		if len(add) == 0 {
			return nil
		}
		units := make([]models.RoomUnit, len(add))
		for i, n := range add {
			units[i] = models.RoomUnit{ID: NewID(), RoomID: id, Number: n}
		}
		return tx.Omit("UnavailableDates").Create(&units).Error
	})
	if err != nil {
		return nil, err
	}
	return s.GetRoom(ctx, id)
}

func (s *gormStore) DeleteRoom(ctx context.Context, id, hotelID string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var room models.Room
		if err := tx.Select("id", "hotel_id").First(&room, "id = ?", id).Error; err != nil {
			return notFound(err)
		}
		if hotelID != "" && room.HotelID != hotelID {
			return ErrNotFound
		}
		return deleteRooms(tx, []string{id})
	})
}

func (s *gormStore) GetRoom(ctx context.Context, id string) (*models.Room, error) {
	var room models.Room
	if err := withUnits(s.db.WithContext(ctx)).First(&room, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	normalizeRoom(&room)
	return &room, nil
}

func (s *gormStore) ListRooms(ctx context.Context) ([]models.Room, error) {
	rooms := []models.Room{}
	if err := withUnits(s.db.WithContext(ctx)).Order("created_at, id").Find(&rooms).Error; err != nil {
		return nil, err
	}
	for i := range rooms {
		normalizeRoom(&rooms[i])
	}
	return rooms, nil
}

// AddUnavailableDates checks and inserts inside one transaction. Two writers
// that both pass the check still collide on the (room_unit_id, date) unique
// index, which surfaces here as ErrConflict.
func (s *gormStore) AddUnavailableDates(ctx context.Context, unitID string, dates []string) error {
	dates = uniqueDates(dates)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var unit models.RoomUnit
		if err := tx.Select("id").First(&unit, "id = ?", unitID).Error; err != nil {
			return notFound(err)
		}
		if len(dates) == 0 {
			return nil
		}
		var taken int64
		if err := tx.Model(&models.UnitDate{}).Where("room_unit_id = ? AND date IN ?", unitID, dates).Count(&taken).Error; err != nil {
			return err
		}
		if taken > 0 {
			return ErrConflict
		}
		rows := make([]models.UnitDate, len(dates))
		for i, d := range dates {
			rows[i] = models.UnitDate{RoomUnitID: unitID, Date: d}
		}
		return tx.Create(&rows).Error
	})
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrConflict
	}
	return err
}

func (s *gormStore) CreateUser(ctx context.Context, user *models.User) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := checkUserUnique(tx, "", user.Username, user.Email); err != nil {
			return err
		}
		if user.ID == "" {
			user.ID = NewID()
		}
		return tx.Create(user).Error
	})
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return s.duplicateUser(ctx, user.Username)
	}
	return err
}

func checkUserUnique(tx *gorm.DB, selfID, username, email string) error {
	var count int64
	if username != "" {
		if err := tx.Model(&models.User{}).Where("username = ? AND id <> ?", username, selfID).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return ErrUsernameTaken
		}
	}
	if email != "" {
		if err := tx.Model(&models.User{}).Where("email = ? AND id <> ?", email, selfID).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return ErrEmailTaken
		}
	}
	return nil
}

// duplicateUser names the column a concurrent insert collided on.
func (s *gormStore) duplicateUser(ctx context.Context, username string) error {
	if _, err := s.GetUserByUsername(ctx, username); err == nil {
		return ErrUsernameTaken
	}
	return ErrEmailTaken
}

func (s *gormStore) GetUser(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return &user, nil
}

func (s *gormStore) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, "username = ?", username).Error; err != nil {
		return nil, notFound(err)
	}
	return &user, nil
}

func (s *gormStore) ListUsers(ctx context.Context) ([]models.User, error) {
	users := []models.User{}
	if err := s.db.WithContext(ctx).Order("created_at, id").Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

func (s *gormStore) UpdateUser(ctx context.Context, id string, upd UserUpdate) (*models.User, error) {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var user models.User
		if err := tx.Select("id").First(&user, "id = ?", id).Error; err != nil {
			return notFound(err)
		}
		if upd.Email != nil {
			if err := checkUserUnique(tx, id, "", *upd.Email); err != nil {
				return err
			}
		}
		fields := upd.fields()
		if len(fields) == 0 {
			return nil
		}
		return tx.Model(&user).Updates(columnMap(fields)).Error
	})
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return nil, ErrEmailTaken
	}
	if err != nil {
		return nil, err
	}
	return s.GetUser(ctx, id)
}

func (s *gormStore) DeleteUser(ctx context.Context, id string) error {
	res := s.db.WithContext(ctx).Delete(&models.User{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
