package database

import (
	"fmt"
	"log"

	"github.com/gannfg/obelisk-learning-sub002/internal/config"
	"github.com/gannfg/obelisk-learning-sub002/internal/model"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func InitDB(cfg *config.Config) (*gorm.DB, error) {
	dbCfg := cfg.Database
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=%s&parseTime=%t&loc=Local",
		dbCfg.User,
		dbCfg.Password,
		dbCfg.Host,
		dbCfg.Port,
		dbCfg.DBName,
		dbCfg.Charset,
		dbCfg.ParseTime,
	)

	logLevel := logger.Warn
	if cfg.Server.Mode == "debug" {
		logLevel = logger.Info
	}

	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logLevel),
		// 唯一约束冲突翻译为 gorm.ErrDuplicatedKey，签到幂等依赖于此
		TranslateError: true,
	})
	if err != nil {
		return nil, err
	}

	log.Println("Database connection established")

	if cfg.Server.Mode != "release" || cfg.ForceMigrate {
		if err := Migrate(db); err != nil {
			return nil, err
		}
		log.Println("Database migration completed")
	}

	return db, nil
}

// Migrate 建表并创建签到/徽章所需的唯一索引
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&model.User{},
		&model.Workshop{},
		&model.AttendanceRecord{},
		&model.UserProgress{},
		&model.Badge{},
		&model.UserBadge{},
		&model.Notification{},
	); err != nil {
		return err
	}

	return seedBadges(db)
}

// 默认徽章定义，授予时也会按名称懒创建
func seedBadges(db *gorm.DB) error {
	var count int64
	if err := db.Model(&model.Badge{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	defaults := []model.Badge{
		{Name: "First Check-in", Description: "Attended your first workshop", Icon: "ticket"},
		{Name: "Workshop Regular", Description: "Attended 5 workshops", Icon: "calendar-check"},
		{Name: "Workshop Veteran", Description: "Attended 10 workshops", Icon: "medal"},
		{Name: "Rising Star", Description: "Reached level 5", Icon: "star"},
		{Name: "Seasoned Learner", Description: "Reached level 10", Icon: "trophy"},
		{Name: "Course Finisher", Description: "Completed your first course", Icon: "graduation-cap"},
	}
	for i := range defaults {
		if err := db.Create(&defaults[i]).Error; err != nil {
			return err
		}
	}
	return nil
}
