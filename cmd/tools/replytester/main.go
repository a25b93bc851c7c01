package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/zhouzirui/textmate/backend/internal/config"
	"github.com/zhouzirui/textmate/backend/internal/model/chat"
	"github.com/zhouzirui/textmate/backend/internal/service/ai"
	"github.com/zhouzirui/textmate/backend/internal/service/typing"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)

	if err := godotenv.Load(); err != nil {
		log.Printf("[WARN] 无法加载 .env，改用系统环境变量: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("配置加载失败: %v", err)
	}

	name := flag.String("name", "", "联系人名字，留空使用默认人设")
	personality := flag.String("personality", "", "联系人性格描述，留空使用默认描述")
	seed := flag.Bool("seed", false, "以示例对话作为初始历史")
	timeout := flag.Duration("timeout", cfg.AI.RequestTimeout, "单次请求超时时间")
	noDelay := flag.Bool("no-delay", false, "跳过模拟打字延迟")

	flag.Parse()

	ctx := context.Background()
	textModel, err := newTextModel(ctx, cfg.AI)
	if err != nil {
		log.Fatalf("模型初始化失败: %v", err)
	}

	svc := ai.NewService(textModel, ai.NewLogUsageSink(nil), ai.ServiceConfig{
		Prompts: ai.PromptBuilder{
			Window:             cfg.Chat.HistoryWindow,
			DefaultName:        cfg.Chat.DefaultPersonaName,
			DefaultDescription: cfg.Chat.DefaultPersonaDescription,
		},
		FallbackReply: cfg.Chat.FallbackReply,
		Timeout:       *timeout,
	})

	pacer := typing.Pacer{PerChar: cfg.Chat.TypingPerChar, Min: cfg.Chat.TypingMin, Max: cfg.Chat.TypingMax}
	if *noDelay {
		pacer = typing.Pacer{}
	}

	displayName := *name
	if strings.TrimSpace(displayName) == "" {
		displayName = cfg.Chat.DefaultPersonaName
	}

	var history []chat.Message
	if *seed {
		history = chat.SeedTranscript()
		for _, msg := range history {
			printMessage(displayName, msg)
		}
	}

	log.Printf("model=%s persona=%q，输入消息后回车，Ctrl+D 退出", svc.ModelName(), displayName)

	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}

		reply := svc.GenerateReply(ctx, text, history, *name, *personality)

		fmt.Printf("%s is typing...\n", displayName)
		_ = typing.Wait(ctx, pacer.Delay(reply))

		now := time.Now()
		history = append(history,
			chat.NewMessage(chat.RoleUser, text, now),
			chat.NewMessage(chat.RoleAssistant, reply, now),
		)
		printMessage(displayName, history[len(history)-1])
	}
	if err := scanner.Err(); err != nil {
		log.Fatalf("读取输入失败: %v", err)
	}
}

func printMessage(name string, msg chat.Message) {
	speaker := "You"
	if msg.Role == chat.RoleAssistant {
		speaker = name
	}
	fmt.Printf("[%s] %s: %s\n", msg.Timestamp, speaker, msg.Content)
}

func newTextModel(ctx context.Context, cfg config.AIConfig) (ai.TextModel, error) {
	if !cfg.Enabled() {
		log.Printf("[WARN] %s 凭证未配置，所有回复都将是兜底文案", cfg.Provider)
		return nil, nil
	}

	if cfg.Provider == config.ProviderArk {
		chatModel, err := cfg.NewChatModel(ctx)
		if err != nil {
			return nil, err
		}
		arkModel, err := ai.NewArkModel(ctx, chatModel, cfg.Model, cfg.Temperature)
		if err != nil {
			return nil, err
		}
		return arkModel, nil
	}

	geminiModel, err := ai.NewGeminiModel(ctx, cfg.GeminiAPIKey, cfg.GeminiModel, cfg.Temperature)
	if err != nil {
		return nil, err
	}
	return geminiModel, nil
}
