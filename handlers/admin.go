package handlers

import (
	"bytes"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/xuri/excelize/v2"

	"hotel-booking/middleware"
	"hotel-booking/models"
)

const (
	occupancySheet = "Occupancy"
	xlsxMIME       = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// ExportOccupancy 导出酒店入住详单到Excel文件（管理员权限）
func (h *Handler) ExportOccupancy(c *gin.Context) {
	ctx := c.Request.Context()
	hotel, err := h.Store.GetHotel(ctx, c.Param("id"))
	if err != nil {
		middleware.Fail(c, err)
		return
	}
	rooms, err := h.Store.HotelRooms(ctx, hotel.ID)
	if err != nil {
		middleware.Fail(c, err)
		return
	}

	f, err := buildOccupancyWorkbook(hotel, rooms)
	if err != nil {
		middleware.Fail(c, err)
		return
	}
	defer func() {
		if err := f.Close(); err != nil {
			logrus.WithError(err).Warn("关闭Excel文件失败")
		}
	}()

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		middleware.Fail(c, err)
		return
	}

	filename := fmt.Sprintf("occupancy_%s_%s.xlsx", hotel.ID, time.Now().Format("20060102_150405"))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, xlsxMIME, buf.Bytes())
}

// buildOccupancyWorkbook lists every unit of the hotel with its booked nights,
// followed by a totals row.
func buildOccupancyWorkbook(hotel *models.Hotel, rooms []models.Room) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", occupancySheet); err != nil {
		f.Close()
		return nil, err
	}

	// 设置表头
	headers := []string{"Room", "Price", "Unit", "Booked nights", "Booked dates"}
	for i, header := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(occupancySheet, cell, header)
	}

	// 填充数据
	row := 2
	units, booked := 0, 0
	for _, room := range rooms {
		for _, unit := range room.RoomNumbers {
			dates := make([]string, len(unit.UnavailableDates))
			for i, d := range unit.UnavailableDates {
				dates[i] = d.Date
			}
			f.SetCellValue(occupancySheet, fmt.Sprintf("A%d", row), room.Title)
			f.SetCellValue(occupancySheet, fmt.Sprintf("B%d", row), room.Price)
			f.SetCellValue(occupancySheet, fmt.Sprintf("C%d", row), unit.Number)
			f.SetCellValue(occupancySheet, fmt.Sprintf("D%d", row), len(dates))
			f.SetCellValue(occupancySheet, fmt.Sprintf("E%d", row), strings.Join(dates, ", "))
			row++
			units++
			booked += len(dates)
		}
	}

	// 添加总结信息
	summaryRow := row + 1
	f.SetCellValue(occupancySheet, fmt.Sprintf("A%d", summaryRow), hotel.Name)
	f.SetCellValue(occupancySheet, fmt.Sprintf("C%d", summaryRow), fmt.Sprintf("%d units", units))
	f.SetCellValue(occupancySheet, fmt.Sprintf("D%d", summaryRow), booked)

	// 设置列宽
	f.SetColWidth(occupancySheet, "A", "A", 24)
	f.SetColWidth(occupancySheet, "B", "D", 14)
	f.SetColWidth(occupancySheet, "E", "E", 60)
	return f, nil
}
