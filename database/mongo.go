package database

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"hotel-booking/models"
)

const (
	hotelsCollection = "hotels"
	roomsCollection  = "rooms"
	usersCollection  = "users"
)

type mongoStore struct {
	client *mongo.Client
	db     *mongo.Database
}

// NewMongoStore connects to uri and prepares the indexes of database name.
func NewMongoStore(ctx context.Context, uri, name string) (Store, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, err
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, err
	}
	if name == "" {
		name = "booking"
	}
	s := &mongoStore{client: client, db: client.Database(name)}
	if err := s.ensureIndexes(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *mongoStore) ensureIndexes(ctx context.Context) error {
	_, err := s.db.Collection(usersCollection).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "username", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
	})
	if err != nil {
		return err
	}
	_, err = s.db.Collection(roomsCollection).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "hotelId", Value: 1}}},
		{Keys: bson.D{{Key: "roomNumbers._id", Value: 1}}},
	})
	if err != nil {
		return err
	}
	_, err = s.db.Collection(hotelsCollection).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "city", Value: 1}}},
		{Keys: bson.D{{Key: "type", Value: 1}}},
	})
	return err
}

func (s *mongoStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

func (s *mongoStore) hotels() *mongo.Collection { return s.db.Collection(hotelsCollection) }
func (s *mongoStore) rooms() *mongo.Collection  { return s.db.Collection(roomsCollection) }
func (s *mongoStore) users() *mongo.Collection  { return s.db.Collection(usersCollection) }

func noDocuments(err error) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return ErrNotFound
	}
	return err
}

func (s *mongoStore) CreateHotel(ctx context.Context, hotel *models.Hotel) error {
	prepareHotel(hotel)
	now := time.Now()
	hotel.CreatedAt, hotel.UpdatedAt = now, now
	_, err := s.hotels().InsertOne(ctx, hotel)
	return err
}

func (s *mongoStore) UpdateHotel(ctx context.Context, id string, upd HotelUpdate) (*models.Hotel, error) {
	var hotel models.Hotel
	err := s.hotels().FindOneAndUpdate(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bsonSet(upd.fields())},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&hotel)
	if err != nil {
		return nil, noDocuments(err)
	}
	normalizeHotel(&hotel)
	return &hotel, nil
}

// DeleteHotel runs without a transaction so that it also works against a
// standalone server; rooms go first so a failure never leaves orphans.
func (s *mongoStore) DeleteHotel(ctx context.Context, id string) error {
	if _, err := s.GetHotel(ctx, id); err != nil {
		return err
	}
	if _, err := s.rooms().DeleteMany(ctx, bson.M{"hotelId": id}); err != nil {
		return err
	}
	_, err := s.hotels().DeleteOne(ctx, bson.M{"_id": id})
	return err
}

func (s *mongoStore) GetHotel(ctx context.Context, id string) (*models.Hotel, error) {
	var hotel models.Hotel
	if err := s.hotels().FindOne(ctx, bson.M{"_id": id}).Decode(&hotel); err != nil {
		return nil, noDocuments(err)
	}
	normalizeHotel(&hotel)
	return &hotel, nil
}

func (s *mongoStore) ListHotels(ctx context.Context, filter HotelFilter) ([]models.Hotel, error) {
	min, max := filter.bounds()
	query := bson.M{"cheapestPrice": bson.M{"$gt": min, "$lt": max}}
	if filter.City != "" {
		query["city"] = filter.City
	}
	if filter.Type != "" {
		query["type"] = filter.Type
	}
	if filter.Featured != nil {
		query["featured"] = *filter.Featured
	}
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}, {Key: "_id", Value: 1}})
	if filter.Limit > 0 {
		opts.SetLimit(int64(filter.Limit))
	}

	cursor, err := s.hotels().Find(ctx, query, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	hotels := []models.Hotel{}
	if err := cursor.All(ctx, &hotels); err != nil {
		return nil, err
	}
	for i := range hotels {
		normalizeHotel(&hotels[i])
	}
	return hotels, nil
}

func (s *mongoStore) CountByCity(ctx context.Context, cities []string) ([]int64, error) {
	counts := make([]int64, len(cities))
	for i, city := range cities {
		n, err := s.hotels().CountDocuments(ctx, bson.M{"city": strings.TrimSpace(city)})
		if err != nil {
			return nil, err
		}
		counts[i] = n
	}
	return counts, nil
}

func (s *mongoStore) CountByType(ctx context.Context) ([]models.TypeCount, error) {
	types := models.GetHotelTypes()
	result := make([]models.TypeCount, len(types))
	for i, t := range types {
		n, err := s.hotels().CountDocuments(ctx, bson.M{"type": t})
		if err != nil {
			return nil, err
		}
		result[i] = models.TypeCount{Type: t, Count: n}
	}
	return result, nil
}

func (s *mongoStore) HotelRooms(ctx context.Context, hotelID string) ([]models.Room, error) {
	hotel, err := s.GetHotel(ctx, hotelID)
	if err != nil {
		return nil, err
	}
	rooms, err := s.findRooms(ctx, bson.M{"_id": bson.M{"$in": hotel.Rooms}})
	if err != nil {
		return nil, err
	}
	byID := make(map[string]models.Room, len(rooms))
	for _, r := range rooms {
		byID[r.ID] = r
	}
	ordered := make([]models.Room, 0, len(rooms))
	for _, id := range hotel.Rooms {
		if r, ok := byID[id]; ok {
			ordered = append(ordered, r)
		}
	}
	return ordered, nil
}

func (s *mongoStore) findRooms(ctx context.Context, filter bson.M) ([]models.Room, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}, {Key: "_id", Value: 1}})
	cursor, err := s.rooms().Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	rooms := []models.Room{}
	if err := cursor.All(ctx, &rooms); err != nil {
		return nil, err
	}
	for i := range rooms {
		normalizeRoom(&rooms[i])
	}
	return rooms, nil
}

func (s *mongoStore) CreateRoom(ctx context.Context, hotelID string, room *models.Room) error {
	if _, err := s.GetHotel(ctx, hotelID); err != nil {
		return err
	}
	prepareRoom(hotelID, room)
	now := time.Now()
	room.CreatedAt, room.UpdatedAt = now, now
	if _, err := s.rooms().InsertOne(ctx, room); err != nil {
		return err
	}
	_, err := s.hotels().UpdateOne(ctx,
		bson.M{"_id": hotelID},
		bson.M{"$push": bson.M{"rooms": room.ID}, "$set": bson.M{"updatedAt": now}},
	)
	return err
}

// UpdateRoom never rewrites the whole unit array, so dates pushed by a
// concurrent reservation on a kept unit survive.
func (s *mongoStore) UpdateRoom(ctx context.Context, id string, upd RoomUpdate) (*models.Room, error) {
	room, err := s.GetRoom(ctx, id)
	if err != nil {
		return nil, err
	}
	if _, err := s.rooms().UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bsonSet(upd.fields())}); err != nil {
		return nil, err
	}
	if upd.Numbers != nil {
		add, drop := diffNumbers(room.RoomNumbers, upd.Numbers)
		if len(drop) > 0 {
			ids := make([]string, len(drop))
			for i, u := range drop {
				ids[i] = u.ID
			}
			_, err := s.rooms().UpdateOne(ctx, bson.M{"_id": id},
				bson.M{"$pull": bson.M{"roomNumbers": bson.M{"_id": bson.M{"$in": ids}}}})
			if err != nil {
				return nil, err
			}
		}
		if len(add) > 0 {
			units := make([]models.RoomUnit, len(add))
			for i, n := range add {
				units[i] = models.RoomUnit{ID: NewID(), Number: n, UnavailableDates: []models.UnitDate{}}
			}
			_, err := s.rooms().UpdateOne(ctx, bson.M{"_id": id},
				bson.M{"$push": bson.M{"roomNumbers": bson.M{"$each": units}}})
			if err != nil {
				return nil, err
			}
		}
	}
	return s.GetRoom(ctx, id)
}

func (s *mongoStore) DeleteRoom(ctx context.Context, id, hotelID string) error {
	room, err := s.GetRoom(ctx, id)
	if err != nil {
		return err
	}
	if hotelID != "" && room.HotelID != hotelID {
		return ErrNotFound
	}
	if _, err := s.rooms().DeleteOne(ctx, bson.M{"_id": id}); err != nil {
		return err
	}
	_, err = s.hotels().UpdateOne(ctx,
		bson.M{"_id": room.HotelID},
		bson.M{"$pull": bson.M{"rooms": id}, "$set": bson.M{"updatedAt": time.Now()}},
	)
	return err
}

func (s *mongoStore) GetRoom(ctx context.Context, id string) (*models.Room, error) {
	var room models.Room
	if err := s.rooms().FindOne(ctx, bson.M{"_id": id}).Decode(&room); err != nil {
		return nil, noDocuments(err)
	}
	normalizeRoom(&room)
	return &room, nil
}

func (s *mongoStore) ListRooms(ctx context.Context) ([]models.Room, error) {
	return s.findRooms(ctx, bson.M{})
}

// AddUnavailableDates is a single conditional update: the room only matches
// when the unit holds none of the dates, and the positional operator pushes
// into that unit.
func (s *mongoStore) AddUnavailableDates(ctx context.Context, unitID string, dates []string) error {
	dates = uniqueDates(dates)
	if len(dates) == 0 {
		n, err := s.rooms().CountDocuments(ctx, bson.M{"roomNumbers._id": unitID})
		if err != nil {
			return err
		}
		if n == 0 {
			return ErrNotFound
		}
		return nil
	}

	docs := make([]models.UnitDate, len(dates))
	for i, d := range dates {
		docs[i] = models.UnitDate{Date: d}
	}
	filter := bson.M{"roomNumbers": bson.M{"$elemMatch": bson.M{
		"_id":                   unitID,
		"unavailableDates.date": bson.M{"$nin": dates},
	}}}
	update := bson.M{
		"$push": bson.M{"roomNumbers.$.unavailableDates": bson.M{"$each": docs}},
		"$set":  bson.M{"updatedAt": time.Now()},
	}
	res, err := s.rooms().UpdateOne(ctx, filter, update)
	if err != nil {
		return err
	}
	if res.MatchedCount > 0 {
		return nil
	}

	n, err := s.rooms().CountDocuments(ctx, bson.M{"roomNumbers._id": unitID})
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return ErrConflict
}

func (s *mongoStore) CreateUser(ctx context.Context, user *models.User) error {
	if err := s.checkUserUnique(ctx, "", user.Username, user.Email); err != nil {
		return err
	}
	if user.ID == "" {
		user.ID = NewID()
	}
	now := time.Now()
	user.CreatedAt, user.UpdatedAt = now, now
	_, err := s.users().InsertOne(ctx, user)
	if mongo.IsDuplicateKeyError(err) {
		if _, lookupErr := s.GetUserByUsername(ctx, user.Username); lookupErr == nil {
			return ErrUsernameTaken
		}
		return ErrEmailTaken
	}
	return err
}

func (s *mongoStore) checkUserUnique(ctx context.Context, selfID, username, email string) error {
	if username != "" {
		n, err := s.users().CountDocuments(ctx, bson.M{"username": username, "_id": bson.M{"$ne": selfID}})
		if err != nil {
			return err
		}
		if n > 0 {
			return ErrUsernameTaken
		}
	}
	if email != "" {
		n, err := s.users().CountDocuments(ctx, bson.M{"email": email, "_id": bson.M{"$ne": selfID}})
		if err != nil {
			return err
		}
		if n > 0 {
			return ErrEmailTaken
		}
	}
	return nil
}

func (s *mongoStore) GetUser(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	if err := s.users().FindOne(ctx, bson.M{"_id": id}).Decode(&user); err != nil {
		return nil, noDocuments(err)
	}
	return &user, nil
}

func (s *mongoStore) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	if err := s.users().FindOne(ctx, bson.M{"username": username}).Decode(&user); err != nil {
		return nil, noDocuments(err)
	}
	return &user, nil
}

func (s *mongoStore) ListUsers(ctx context.Context) ([]models.User, error) {
	cursor, err := s.users().Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	users := []models.User{}
	if err := cursor.All(ctx, &users); err != nil {
		return nil, err
	}
	return users, nil
}

func (s *mongoStore) UpdateUser(ctx context.Context, id string, upd UserUpdate) (*models.User, error) {
	if upd.Email != nil {
		if err := s.checkUserUnique(ctx, id, "", *upd.Email); err != nil {
			return nil, err
		}
	}
	var user models.User
	err := s.users().FindOneAndUpdate(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bsonSet(upd.fields())},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&user)
	if mongo.IsDuplicateKeyError(err) {
		return nil, ErrEmailTaken
	}
	if err != nil {
		return nil, noDocuments(err)
	}
	return &user, nil
}

func (s *mongoStore) DeleteUser(ctx context.Context, id string) error {
	res, err := s.users().DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}
