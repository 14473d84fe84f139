// 命令行签到终端
//
// 从标准输入读取扫码内容（USB 扫码枪以回车结束一行），提交到签到服务。
//
// 用法: go run ./cmd/checkin-kiosk -server http://localhost:8080 -link https://example.com/checkin/<token>

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/gannfg/obelisk-learning-sub002/internal/kiosk"
	"github.com/gannfg/obelisk-learning-sub002/internal/model"
	"github.com/gannfg/obelisk-learning-sub002/internal/service"
	"github.com/gannfg/obelisk-learning-sub002/internal/util"
	"github.com/joho/godotenv"
)

func main() {
	server := flag.String("server", "http://localhost:8080", "签到服务地址")
	link := flag.String("link", "", "签到链接或令牌")
	accessToken := flag.String("access-token", "", "登录令牌，默认读取 OBELISK_ACCESS_TOKEN")
	manual := flag.Bool("manual", false, "不使用扫码设备，直接把 -link 作为扫码结果提交")
	flag.Parse()

	_ = godotenv.Load()

	if *accessToken == "" {
		*accessToken = os.Getenv("OBELISK_ACCESS_TOKEN")
	}
	if *accessToken == "" {
		log.Fatal("access token is required (-access-token or OBELISK_ACCESS_TOKEN)")
	}

	sessionToken := service.ExtractToken(*link)
	if sessionToken == "" {
		log.Fatal("check-in link or token is required (-link)")
	}

	// 仅用于本地判断角色，服务端仍会校验签名
	var role model.UserRole
	if claims, err := util.PeekClaims(*accessToken); err == nil {
		role = claims.Role
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client := kiosk.NewClient(*server, *accessToken)

	summary, err := client.VerifyToken(ctx, sessionToken)
	if err != nil {
		fmt.Println(kiosk.Reason(err))
		os.Exit(1)
	}
	fmt.Printf("Workshop: %s (%s)\n", summary.Title, summary.ScheduledAt.Local().Format("2006-01-02 15:04"))

	done := make(chan kiosk.Snapshot, 1)
	m := kiosk.NewMachine(sessionToken, role, kiosk.NewLineCapture(os.Stdin), client)
	m.OnChange = func(s kiosk.Snapshot) {
		if s.Message != "" {
			fmt.Println(s.Message)
		}
		if s.State == kiosk.StateSuccess || s.State == kiosk.StateError {
			select {
			case done <- s:
			default:
			}
		}
	}
	defer m.Close()

	if *manual {
		if err := m.ManualEntry(ctx, *link); err != nil {
			fmt.Println(kiosk.Reason(err))
			os.Exit(1)
		}
	} else if err := m.Start(ctx); errors.Is(err, util.ErrCaptureUnavailable) {
		os.Exit(1)
	}

	for {
		select {
		case <-ctx.Done():
			m.Cancel()
			return
		case s := <-done:
			switch {
			case s.State == kiosk.StateSuccess:
				if s.Outcome != nil && len(s.Outcome.BadgesGranted) > 0 {
					fmt.Printf("New badges: %s\n", strings.Join(s.Outcome.BadgesGranted, ", "))
				}
				return
			case !s.Retryable:
				os.Exit(1)
			default:
				// 可重试的错误：回到扫码状态
				if err := m.Retry(); err != nil {
					os.Exit(1)
				}
				if err := m.Start(ctx); err != nil {
					os.Exit(1)
				}
			}
		}
	}
}
