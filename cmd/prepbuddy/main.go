package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/iabetor/prepbuddy/internal/config"
	"github.com/iabetor/prepbuddy/internal/logger"
	"github.com/iabetor/prepbuddy/internal/pipeline"
	"github.com/iabetor/prepbuddy/internal/tts"
)

func main() {
	configPath := flag.String("config", "configs/prepbuddy.yaml", "配置文件路径")
	voice := flag.String("voice", "", "音色预设名，覆盖配置文件")
	outBase := flag.String("o", "", "输出文件基础名，覆盖配置文件")
	batch := flag.Bool("batch", false, "批量模式：每个问答单元输出独立文件")
	region := flag.String("region", "", "Google TTS 区域端点，覆盖配置文件")
	service := flag.String("service", "", "TTS 提供商（google、edge、tencent），覆盖配置文件")
	format := flag.String("format", "", "输出格式（wav、mp3），覆盖配置文件")
	flag.Usage = printUsage
	flag.Parse()

	// 根目录的 .env 存在则读入（存放各云服务的密钥）
	_ = godotenv.Load()

	explicit := false
	flag.Visit(func(f *flag.Flag) {
		if f.Name == "config" {
			explicit = true
		}
	})

	cfg, err := config.Load(*configPath)
	if err != nil {
		// 默认路径没有配置文件时用内置默认值运行
		if !explicit && errors.Is(err, os.ErrNotExist) {
			cfg = config.Default()
		} else {
			fmt.Fprintf(os.Stderr, "加载配置失败: %v\n", err)
			os.Exit(1)
		}
	}

	applyOverrides(cfg, *voice, *outBase, *region, *service, *format)
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "配置无效: %v\n", err)
		os.Exit(1)
	}

	args := flag.Args()
	if len(args) == 0 {
		printUsage()
		os.Exit(1)
	}

	// presets 子命令不需要日志和云端连接
	if args[0] == "presets" {
		cmdPresets(cfg)
		return
	}

	if err := logger.Init(logger.Config{
		Level:      cfg.Log.Level,
		File:       cfg.Log.File,
		MaxSize:    cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAge:     cfg.Log.MaxAgeDays,
	}); err != nil {
		fmt.Fprintf(os.Stderr, "初始化日志失败: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 监听系统信号，优雅中止
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		log.Printf("[main] 收到信号 %v，正在中止...", sig)
		cancel()
	}()

	if args[0] == "voices" {
		langCode := ""
		if len(args) > 1 {
			langCode = args[1]
		}
		cmdVoices(ctx, cfg, langCode)
		return
	}

	inputPath := args[0]
	log.Printf("[main] PrepBuddy 启动 (provider=%s voice=%s batch=%v)", cfg.TTS.Provider, cfg.TTS.Voice, *batch)

	p, err := pipeline.New(ctx, cfg, pipeline.Options{
		Batch: *batch,
		OnPhase: func(from, to pipeline.Phase) {
			log.Printf("[main] %s", phaseLabel(to))
		},
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "创建流水线失败: %v\n", err)
		os.Exit(1)
	}
	defer p.Close()

	out, err := p.Run(ctx, inputPath)
	printSummary(out)
	if err != nil {
		fmt.Fprintf(os.Stderr, "流水线运行出错: %v\n", err)
		os.Exit(1)
	}
}

// applyOverrides 把命令行参数覆盖到配置上。
func applyOverrides(cfg *config.Config, voice, outBase, region, service, format string) {
	if voice != "" {
		cfg.TTS.Voice = voice
	}
	if outBase != "" {
		cfg.Output.Base = outBase
	}
	if region != "" {
		cfg.TTS.Region = region
	}
	if service != "" {
		cfg.TTS.Provider = service
	}
	if format != "" {
		cfg.Output.Format = format
	}
}

// phaseLabel 把运行阶段转成展示给用户的进度提示。
func phaseLabel(p pipeline.Phase) string {
	switch p {
	case pipeline.PhaseParsing:
		return "解析输入文档..."
	case pipeline.PhaseSynthesizing:
		return "合成语音中..."
	case pipeline.PhaseAssembling:
		return "拼装音频产物..."
	case pipeline.PhaseDone:
		return "运行完成"
	case pipeline.PhaseFailed:
		return "运行失败"
	}
	return p.String()
}

// cmdPresets 列出内置与配置文件中的自定义音色预设。
func cmdPresets(cfg *config.Config) {
	fmt.Println("内置音色预设:")
	for _, name := range tts.PresetNames() {
		p, _ := tts.LookupPreset(name)
		fmt.Printf("  %-22s %-26s 语速 %.2f  增益 %+.1f dB\n",
			p.Name, p.ProviderVoice, p.SpeakingRate, p.VolumeGainDb)
	}
	if len(cfg.TTS.Presets) > 0 {
		fmt.Println()
		fmt.Println("配置文件预设:")
		for _, p := range cfg.TTS.Presets {
			fmt.Printf("  %-22s %-26s 语速 %.2f  增益 %+.1f dB\n",
				p.Name, p.Voice, p.Rate, p.GainDb)
		}
	}
}

// cmdVoices 查询 Google 云端可用音色并打印。
func cmdVoices(ctx context.Context, cfg *config.Config, languageCode string) {
	if cfg.TTS.Provider != "google" {
		fmt.Fprintln(os.Stderr, "voices 子命令仅支持 google 提供商")
		os.Exit(1)
	}

	engine, err := tts.NewGoogleEngine(ctx, tts.GoogleConfig{
		CredentialsFile: cfg.TTS.Google.CredentialsFile,
		Region:          cfg.TTS.Region,
		SampleRate:      cfg.TTS.Google.SampleRate,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "连接 Google TTS 失败: %v\n", err)
		os.Exit(1)
	}
	defer engine.Close()

	voices, err := engine.ListVoices(ctx, languageCode)
	if err != nil {
		fmt.Fprintf(os.Stderr, "查询音色失败: %v\n", err)
		os.Exit(1)
	}
	for _, v := range voices {
		fmt.Printf("%-44s %-10s %d Hz\n", v.Name, v.Gender, v.SampleRate)
	}
	fmt.Printf("共 %d 个音色\n", len(voices))
}

// printSummary 输出运行结果汇总，失败单元按文档中的序号展示。
func printSummary(out *pipeline.Outcome) {
	if out == nil {
		return
	}
	fmt.Println()
	fmt.Printf("运行 %s\n", out.RunID)
	fmt.Printf("  问答单元: 共 %d 个，成功 %d 个，失败 %d 个\n",
		out.TotalUnits, out.SynthesizedUnits, len(out.FailedUnits))
	for _, f := range out.FailedUnits {
		fmt.Printf("    单元 %d 失败: %s\n", f.Unit+1, f.Reason)
	}
	if len(out.Warnings) > 0 {
		fmt.Printf("  警告 %d 条:\n", len(out.Warnings))
		for _, w := range out.Warnings {
			fmt.Printf("    %s\n", w)
		}
	}
	for _, a := range out.Artifacts {
		fmt.Printf("  产物: %s（%d 字节）\n", a.Path, a.Size)
	}
}

func printUsage() {
	fmt.Fprintln(os.Stderr, "PrepBuddy 把问答文档合成为朗读音频")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "用法:")
	fmt.Fprintln(os.Stderr, "  prepbuddy [flags] <输入文档>")
	fmt.Fprintln(os.Stderr, "  prepbuddy presets                  列出可用音色预设")
	fmt.Fprintln(os.Stderr, "  prepbuddy [flags] voices [语言码]   列出 Google 云端音色")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "参数:")
	flag.PrintDefaults()
}
