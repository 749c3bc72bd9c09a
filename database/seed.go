package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/jaswdr/faker"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"hotel-booking/models"
)

// AdminAccount describes the administrator created on first start.
type AdminAccount struct {
	Username string
	Email    string
	Password string
}

// EnsureAdmin creates the administrator account when the username is free.
func EnsureAdmin(ctx context.Context, store Store, admin AdminAccount) error {
	if admin.Username == "" {
		return nil
	}
	_, err := store.GetUserByUsername(ctx, admin.Username)
	if err == nil {
		return nil
	}
	if !errors.Is(err, ErrNotFound) {
		return err
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(admin.Password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	email := admin.Email
	if email == "" {
		email = admin.Username + "@localhost"
	}
	user := models.User{
		Username: admin.Username,
		Email:    email,
		Password: string(hashed),
		IsAdmin:  true,
	}
	if err := store.CreateUser(ctx, &user); err != nil {
		return err
	}
	logrus.WithField("username", admin.Username).Info("创建默认管理员账户")
	return nil
}

var demoCities = []string{"Berlin", "Madrid", "London", "Goa", "Manali"}

// SeedDemo fills an empty catalog with generated hotels, each owning two
// rooms of four units. It does nothing when any hotel exists.
func SeedDemo(ctx context.Context, store Store, hotels int) error {
	existing, err := store.ListHotels(ctx, HotelFilter{Limit: 1})
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		return nil
	}

	fake := faker.New()
	types := models.GetHotelTypes()
	for i := 0; i < hotels; i++ {
		city := demoCities[i%len(demoCities)]
		price := fake.IntBetween(40, 400)
		hotel := models.Hotel{
			Name:          fake.Company().Name(),
			Type:          types[i%len(types)],
			City:          city,
			Address:       fake.Address().StreetAddress(),
			Distance:      fmt.Sprintf("%dm from center", fake.IntBetween(100, 5000)),
			Title:         fake.Lorem().Sentence(4),
			Desc:          fake.Lorem().Sentence(20),
			CheapestPrice: price,
			Rating:        float64(fake.IntBetween(25, 50)) / 10,
			Featured:      i%3 == 0,
			Photos:        []string{fmt.Sprintf("https://picsum.photos/seed/hotel%d/800/600", i)},
		}
		if err := store.CreateHotel(ctx, &hotel); err != nil {
			return err
		}

		for r := 0; r < 2; r++ {
			room := models.Room{
				Title:     []string{"Standard Room", "Deluxe Suite"}[r],
				Price:     price + r*fake.IntBetween(20, 120),
				MaxPeople: 2 + r,
				Desc:      fake.Lorem().Sentence(12),
			}
			for n := 1; n <= 4; n++ {
				room.RoomNumbers = append(room.RoomNumbers, models.RoomUnit{Number: (r+1)*100 + n})
			}
			if err := store.CreateRoom(ctx, hotel.ID, &room); err != nil {
				return err
			}
		}
	}
	logrus.WithField("hotels", hotels).Info("初始化示例酒店数据完成")
	return nil
}
