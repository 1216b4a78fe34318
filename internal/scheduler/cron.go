package scheduler

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
)

// cronParser — парсер cron-выражений (стандартные 5 полей).
var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// CalculateNext вычисляет следующее время срабатывания по cron-выражению.
func CalculateNext(cronExpr string, from time.Time) (time.Time, error) {
	schedule, err := cronParser.Parse(cronExpr)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse cron expression %q: %w", cronExpr, err)
	}
	return schedule.Next(from), nil
}

// ValidateCronExpr проверяет валидность cron-выражения.
func ValidateCronExpr(cronExpr string) error {
	_, err := cronParser.Parse(cronExpr)
	if err != nil {
		return fmt.Errorf("invalid cron expression %q: %w", cronExpr, err)
	}
	return nil
}
