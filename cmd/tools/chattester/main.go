package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/zhouzirui/hcp-logger/backend/internal/agent"
	"github.com/zhouzirui/hcp-logger/backend/internal/agent/tools"
	"github.com/zhouzirui/hcp-logger/backend/internal/config"
	"github.com/zhouzirui/hcp-logger/backend/internal/model/chat"
	"github.com/zhouzirui/hcp-logger/backend/internal/model/hcp"
	"github.com/zhouzirui/hcp-logger/backend/internal/service/ai"
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
	if !cfg.AI.Enabled() {
		log.Fatal("AI 未启用，请先配置 ARK_API_KEY 与 ARK_MODEL")
	}

	message := flag.String("message", "", "本轮用户输入")
	historyPath := flag.String("history", "", "历史消息 JSON 文件，格式为 [{sender, content}]")
	hcpID := flag.String("hcp", "", "目录中的 HCP ID，用于补充系统提示词")
	quiet := flag.Bool("quiet", false, "不打印工具调用过程")
	timeout := flag.Duration("timeout", 60*time.Second, "请求超时时间")

	flag.Parse()

	if strings.TrimSpace(*message) == "" {
		flag.Usage()
		log.Fatal("请通过 -message 指定输入")
	}

	history, err := loadHistory(*historyPath)
	if err != nil {
		log.Fatalf("历史消息读取失败: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	directory := hcp.NewMemoryStore(hcp.Seed())
	systemPrompt := ai.DefaultSystemPrompt
	if *hcpID != "" {
		profile, ok := directory.FindByID(*hcpID)
		if !ok {
			log.Fatalf("未知 HCP: %s", *hcpID)
		}
		systemPrompt = ai.NewPromptBuilder("").BuildSystemPrompt(&profile)
	}

	chatModel, err := cfg.AI.NewChatModel(ctx)
	if err != nil {
		log.Fatalf("模型初始化失败: %v", err)
	}
	registry, err := tools.NewDefaultRegistry(ctx, nil, directory)
	if err != nil {
		log.Fatalf("工具注册失败: %v", err)
	}
	svc, err := ai.NewService(ctx, chatModel, registry, ai.WithMaxCycles(cfg.AI.MaxCycles))
	if err != nil {
		log.Fatalf("AI 服务初始化失败: %v", err)
	}

	var opts []agent.RunOption
	if !*quiet {
		opts = append(opts, agent.WithObserver(printEvent))
	}

	start := time.Now()
	reply, err := svc.RunTurn(ctx, ai.TurnRequest{SystemPrompt: systemPrompt, History: history, Message: *message}, opts...)
	if err != nil {
		log.Fatalf("本轮对话失败: %v", err)
	}

	log.Printf("[OK] 用时 %s，类型 %s", time.Since(start).Round(time.Millisecond), reply.Kind)
	fmt.Println(reply.Text)

	if reply.Draft != nil {
		data, _ := json.MarshalIndent(reply.Draft, "", "  ")
		fmt.Println(string(data))
	}
}

func loadHistory(path string) ([]chat.Message, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var history []chat.Message
	if err := json.Unmarshal(data, &history); err != nil {
		return nil, err
	}
	return history, nil
}

func printEvent(_ context.Context, ev agent.Event) {
	switch ev.Type {
	case agent.EventToolStart:
		log.Printf("[cycle %d] -> %s %s", ev.Cycle, ev.ToolName, ev.Content)
	case agent.EventToolResult:
		status := "ok"
		if ev.Failed {
			status = "failed"
		}
		log.Printf("[cycle %d] <- %s (%s) %s", ev.Cycle, ev.ToolName, status, ev.Content)
	case agent.EventDecision:
		log.Printf("[cycle %d] model requested %d tool call(s)", ev.Cycle, ev.ToolCalls)
	}
}
