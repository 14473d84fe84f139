// 初始化本地演示数据脚本
//
// 创建一个管理员、一个学员和一场正在进行的工作坊，并打印两人的调试用 JWT 与签到链接。
// 仅用于本地开发，生产环境的用户和令牌由外部身份系统提供。
//
// 用法: go run scripts/seed_demo.go

package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/gannfg/obelisk-learning-sub002/internal/config"
	"github.com/gannfg/obelisk-learning-sub002/internal/model"
	"github.com/gannfg/obelisk-learning-sub002/internal/repository"
	"github.com/gannfg/obelisk-learning-sub002/internal/service"
	"github.com/gannfg/obelisk-learning-sub002/internal/util"
	"github.com/gannfg/obelisk-learning-sub002/pkg/database"
	"github.com/gannfg/obelisk-learning-sub002/pkg/logger"
	"github.com/joho/godotenv"
	"gorm.io/gorm"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.LoadConfig("configs")
	if err != nil {
		log.Fatalf("无法读取配置文件: %v", err)
	}
	cfg.ForceMigrate = true

	logger.InitLogger(cfg)

	db, err := database.InitDB(cfg)
	if err != nil {
		log.Fatalf("数据库连接失败: %v", err)
	}

	admin := ensureUser(db, "Demo Admin", "admin@example.com", model.Admin)
	student := ensureUser(db, "Demo Student", "student@example.com", model.Student)

	workshops := service.NewWorkshopService(repository.NewWorkshopRepository(db), nil, cfg.Server.PublicURL, cfg.Checkin.TokenTTL(), 0)
	w, err := workshops.Create(context.Background(), service.Caller{UserID: admin.ID, Role: admin.Role}, service.CreateWorkshopRequest{
		Title:       "Intro to Go Workshop",
		Description: "Demo workshop created by seed script",
		ScheduledAt: time.Now(),
	})
	if err != nil {
		log.Fatalf("创建工作坊失败: %v", err)
	}

	for _, u := range []*model.User{admin, student} {
		token, err := util.GenerateJWT(u, cfg.JWT.Secret, 24*time.Hour)
		if err != nil {
			log.Fatalf("生成令牌失败: %v", err)
		}
		fmt.Printf("%s (%s) token: %s\n", u.Name, u.Role, token)
	}
	fmt.Printf("Workshop #%d check-in link: %s\n", w.ID, workshops.CheckinURL(w.CheckinToken))
}

func ensureUser(db *gorm.DB, name, email string, role model.UserRole) *model.User {
	var u model.User
	err := db.Where("email = ?", email).First(&u).Error
	if err == nil {
		return &u
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		log.Fatalf("查询用户失败: %v", err)
	}
	u = model.User{Name: name, Email: email, Role: role}
	if err := db.Create(&u).Error; err != nil {
		log.Fatalf("创建用户失败: %v", err)
	}
	return &u
}
