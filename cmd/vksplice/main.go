package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	cfgpkg "vksplice/internal/config"
	"vksplice/internal/diag"
	"vksplice/internal/pipeline"
	"vksplice/pkg/contract"
)

var pipelineRun = pipeline.Run

// 默认配置文件名（工作目录下存在时自动读取）。
const defaultConfigFile = "vksplice.yaml"

type flags struct {
	profile  string
	config   string
	logLevel string
	logDir   string
	initDir  string
	dryRun   bool
	diff     bool
	quiet    bool
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// run 解析参数并执行一次拼接；返回进程退出码。
func run(args []string, stdout, stderr io.Writer) int {
	code := 0
	cmd := newRootCmd(&code, stdout, stderr)
	cmd.SetArgs(args)
	if err := cmd.Execute(); err != nil {
		// 参数/旗标解析失败（RunE 内部的错误已换算为 code 并返回 nil）
		fprintf(stderr, "参数错误: %v\n", err)
		fprintf(stderr, "%s", cmd.UsageString())
		return diag.ExitCode(diag.CodeArgument)
	}
	return code
}

func newRootCmd(code *int, stdout, stderr io.Writer) *cobra.Command {
	var f flags
	cmd := &cobra.Command{
		Use:   "vksplice [flags] <source.sol> <dest.sol> | <src1,src2,...> <d1,d2,...> <dest.sol>",
		Short: "将 Groth16 verifier 的验证密钥常量写入模板合约",
		Long: `vksplice 从 gnark 生成的 Groth16 Solidity verifier 中提取验证密钥常量与 IC 点坐标，
并写回模板合约的 verifyingKey / ic 函数体。

两个位置参数为单源模式；三个位置参数为聚合模式（按判别值生成 if/else-if 分派）。`,
		Args: func(c *cobra.Command, args []string) error {
			if c.Flags().Changed("init-config") {
				return cobra.MaximumNArgs(0)(c, args)
			}
			return cobra.RangeArgs(2, 3)(c, args)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(c *cobra.Command, args []string) error {
			*code = execute(c.Context(), f, args, stdout, stderr)
			return nil
		},
	}
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	fl := cmd.Flags()
	fl.StringVar(&f.profile, "profile", "", "目标 Profile（desert|block|exodus 或配置内自定义）；缺省按模式选择")
	fl.StringVar(&f.config, "config", "", "配置文件路径（YAML）；缺省读取 ./"+defaultConfigFile+"（若存在）")
	fl.BoolVar(&f.dryRun, "dry-run", false, "不写回目标文件，结果输出到 stdout")
	fl.BoolVar(&f.diff, "diff", false, "与 --dry-run 同用：输出统一差异")
	fl.StringVar(&f.logLevel, "log-level", "", "日志级别 debug|info|warn|error（覆盖配置）")
	fl.StringVar(&f.logDir, "log-dir", "", "JSON 日志目录（覆盖配置）；为空不落盘")
	fl.BoolVarP(&f.quiet, "quiet", "q", false, "关闭终端状态提示（stderr）")
	fl.StringVar(&f.initDir, "init-config", "", "在指定目录生成 "+defaultConfigFile+" 与 .env 模板（已存在则跳过）；带值须写作 --init-config=DIR，不带值时为当前目录，\"-\" 输出到 stdout")
	fl.Lookup("init-config").NoOptDefVal = "."
	return cmd
}

func execute(ctx context.Context, f flags, args []string, stdout, stderr io.Writer) int {
	if ctx == nil {
		ctx = context.Background()
	}
	start := time.Now()
	corrID := diag.NewCorrID()
	// 在任何 ENV 读取前加载 .env（不覆盖已有 ENV）
	if err := loadDotEnv(".env"); err != nil {
		fprintf(stderr, "提示：.env 读取失败（已跳过）：%v\n", err)
	}

	if dir := strings.TrimSpace(f.initDir); dir != "" {
		return initConfig(dir, stdout, stderr)
	}

	cfg, err := loadConfig(f)
	if err != nil {
		fprintf(stderr, "配置解析失败: %v\n", err)
		return exitCode(err)
	}
	if err := cfgpkg.Validate(cfg); err != nil {
		fprintf(stderr, "配置校验失败: %v\n", err)
		_ = dumpConfig(stderr, cfg)
		return exitCode(err)
	}

	// 按最终配置构建 logger；未配置目录时事件丢弃
	var sink io.Writer
	if dir := strings.TrimSpace(cfg.Logging.Dir); dir != "" {
		rf := diag.NewRotatingFile(dir, cfg.Logging.MaxBytes).WithKeep(cfg.Logging.Keep)
		defer rf.Close()
		sink = rf
	}
	logger := diag.NewLogger(corrID, cfg.Logging.Level, sink)

	set, err := settingsFromArgs(args)
	if err != nil {
		fprintf(stderr, "参数错误: %v\n", err)
		logger.Error("cli", string(diag.Classify(err)), "first error", &start)
		return exitCode(err)
	}

	if !cfg.DryRun {
		if err := preflightCheckOutputDir(cfg); err != nil {
			fprintf(stderr, "输出目录不可写或无法创建: %v\n", err)
			logger.Error("cli", string(diag.Classify(err)), "first error", &start)
			return exitCode(err)
		}
	}

	comp, set, err := cfgpkg.Assemble(cfg, set)
	if err != nil {
		fprintf(stderr, "装配失败: %v\n", err)
		logger.Error("cli", string(diag.Classify(err)), "first error", &start)
		return exitCode(err)
	}
	logger.DebugStart("config", "effective", "", cfgpkg.EffectiveKV(cfg, set))

	// 终端信息提示（非日志），默认开启
	term := diag.NewTerminal(stderr, !f.quiet)
	diag.SetTerminal(term)
	defer diag.SetTerminal(nil)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	t := logger.Start("cli", "run")
	if err := pipelineRun(ctx, comp, set, logger); err != nil {
		c := diag.Classify(err)
		logger.Error("cli", string(c), "first error", &start)
		diag.IncOp("cli", "error", "error")
		if c != diag.CodeUnknown {
			diag.IncError("cli", string(c))
		}
		if !errors.Is(err, context.Canceled) {
			fprintf(stderr, "运行失败: %v\n", err)
		}
		term.RunFinish(false, set.Dest, time.Since(start))
		return diag.ExitCode(c)
	}
	t.Finish("run", int64(len(set.Sources)))
	diag.IncOp("cli", "finish", "success")
	diag.ObserveDuration("cli", "finish", time.Since(start).Milliseconds())
	term.RunFinish(true, set.Dest, time.Since(start))
	return 0
}

// loadConfig 合并配置：CLI > ENV > 文件 > 默认。
func loadConfig(f flags) (cfgpkg.Config, error) {
	environ := os.Environ()
	path := strings.TrimSpace(f.config)
	if path == "" {
		path = cfgpkg.ConfigFileFromEnv(environ)
	}
	if path == "" {
		if _, err := os.Stat(defaultConfigFile); err == nil {
			path = defaultConfigFile
		}
	}

	cfg := cfgpkg.Defaults()
	if path != "" {
		base, err := cfgpkg.LoadYAML(path, nil)
		if err != nil {
			return cfg, err
		}
		cfg = cfgpkg.Merge(cfg, base)
	}

	overEnv, err := cfgpkg.EnvOverlay(environ)
	if err != nil {
		return cfg, err
	}
	cfg = cfgpkg.Merge(cfg, overEnv)

	var overCLI cfgpkg.Config
	overCLI.Profile = f.profile
	overCLI.Logging.Level = f.logLevel
	overCLI.Logging.Dir = f.logDir
	overCLI.DryRun = f.dryRun
	overCLI.Diff = f.diff
	return cfgpkg.Merge(cfg, overCLI), nil
}

// settingsFromArgs 按位置参数个数确定模式。
// 两个：<source> <dest>；三个：<src1,src2,...> <d1,d2,...> <dest>。
func settingsFromArgs(args []string) (pipeline.Settings, error) {
	switch len(args) {
	case 2:
		return pipeline.Settings{
			Mode:    contract.ModeSingle,
			Sources: []string{strings.TrimSpace(args[0])},
			Dest:    strings.TrimSpace(args[1]),
		}, nil
	case 3:
		return pipeline.Settings{
			Mode:          contract.ModeAggregate,
			Sources:       contract.SplitList(args[0]),
			Discriminants: contract.SplitList(args[1]),
			Dest:          strings.TrimSpace(args[2]),
		}, nil
	default:
		return pipeline.Settings{}, fmt.Errorf("%w: want 2 or 3 positional arguments, got %d", contract.ErrArgumentCardinality, len(args))
	}
}

func exitCode(err error) int { return diag.ExitCode(diag.Classify(err)) }

func fprintf(w io.Writer, format string, a ...any) { _, _ = fmt.Fprintf(w, format, a...) }

func initConfig(dir string, stdout, stderr io.Writer) int {
	cfg := cfgpkg.DefaultTemplateConfig()
	if dir == "-" {
		if err := writeConfig(stdout, "-", cfg); err != nil {
			fprintf(stderr, "生成默认配置失败: %v\n", err)
			return exitCode(err)
		}
		return 0
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		fprintf(stderr, "生成默认配置失败: %v\n", err)
		return exitCode(err)
	}
	cfgPath := filepath.Join(dir, defaultConfigFile)
	if err := writeConfig(stdout, cfgPath, cfg); err != nil {
		if errors.Is(err, os.ErrExist) {
			fprintf(stderr, "已存在，跳过: %s\n", cfgPath)
		} else {
			fprintf(stderr, "生成默认配置失败: %v\n", err)
			return exitCode(err)
		}
	}
	if err := writeDotEnv(filepath.Join(dir, ".env")); err != nil {
		fprintf(stderr, "提示：.env 生成失败（已跳过）：%v\n", err)
	}
	return 0
}

func dumpConfig(w io.Writer, c cfgpkg.Config) error {
	b, err := cfgpkg.Marshal(c)
	if err != nil {
		return err
	}
	_, _ = io.WriteString(w, "有效配置:\n")
	_, err = w.Write(b)
	return err
}

// writeConfig 写出 YAML 配置；path 为 "-" 时写 stdout。不覆盖已存在文件。
func writeConfig(stdout io.Writer, path string, c cfgpkg.Config) error {
	b, err := cfgpkg.Marshal(c)
	if err != nil {
		return err
	}
	if path == "-" {
		_, err = stdout.Write(b)
		return err
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = f.Write(b)
	return err
}

// loadDotEnv 读取简单的 .env 文件并注入进程环境。
// 规则：
// - 文件不存在时忽略；
// - 跳过空行与 # 注释行；支持可选前缀 "export "；
// - 按首个 '=' 分割；成对单/双引号去除，双引号内处理 \n \t \r \" \\；
// - 不覆盖已存在的环境变量。
func loadDotEnv(path string) error {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	defer f.Close()
	s := bufio.NewScanner(f)
	for s.Scan() {
		line := strings.TrimSpace(s.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		line = strings.TrimSpace(strings.TrimPrefix(line, "export "))
		eq := strings.IndexByte(line, '=')
		if eq <= 0 {
			continue
		}
		key := strings.TrimSpace(line[:eq])
		val := strings.TrimSpace(line[eq+1:])
		if len(val) >= 2 {
			q := val[0]
			if (q == '\'' || q == '"') && val[len(val)-1] == q {
				val = val[1 : len(val)-1]
				if q == '"' {
					val = strings.NewReplacer(`\n`, "\n", `\t`, "\t", `\r`, "\r", `\"`, `"`, `\\`, `\`).Replace(val)
				}
			}
		}
		if _, exists := os.LookupEnv(key); exists {
			continue
		}
		_ = os.Setenv(key, val)
	}
	return s.Err()
}

// writeDotEnv 生成 .env 模板（已存在则跳过，不覆盖不合并）。
func writeDotEnv(path string) error {
	var b strings.Builder
	b.WriteString("# vksplice .env 模板（由 --init-config 生成）\n")
	b.WriteString("# 优先级：CLI > ENV(.env) > YAML\n")
	b.WriteString("# 空值表示未设置。\n\n")

	b.WriteString("# 配置文件\n")
	b.WriteString(cfgpkg.EnvPrefix + "CONFIG_FILE=\n\n")

	b.WriteString("# 运行参数覆盖\n")
	b.WriteString(cfgpkg.EnvPrefix + "PROFILE=\n")
	b.WriteString(cfgpkg.EnvPrefix + "DRY_RUN=\n")
	b.WriteString(cfgpkg.EnvPrefix + "DIFF=\n\n")

	b.WriteString("# 日志\n")
	b.WriteString(cfgpkg.EnvPrefix + "LOG_LEVEL=\n")
	b.WriteString(cfgpkg.EnvPrefix + "LOG_DIR=\n\n")

	b.WriteString("# 组件选择\n")
	for _, k := range []string{"READER", "SPLITTER", "EXTRACTOR", "SYNTHESIZER", "ASSEMBLER", "WRITER"} {
		b.WriteString(cfgpkg.EnvPrefix + "COMPONENTS_" + k + "=\n")
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if os.IsExist(err) {
			return nil
		}
		return err
	}
	defer f.Close()
	_, err = f.WriteString(b.String())
	return err
}

// preflightCheckOutputDir: fs writer 设置了 output_dir 时，启动前检查其可写性。
// 目录存在则试写临时文件；不存在则试在父目录创建临时目录。其他 writer 跳过。
func preflightCheckOutputDir(cfg cfgpkg.Config) error {
	name := strings.TrimSpace(cfg.Components.Writer)
	if name == "" {
		name = cfgpkg.Defaults().Components.Writer
	}
	if name != "fs" || cfg.Options.Writer == nil {
		return nil
	}
	var wopts struct {
		OutputDir string `yaml:"output_dir"`
	}
	// 严格校验由装配阶段负责，这里只取 output_dir
	_ = cfg.Options.Writer.Decode(&wopts)
	dir := strings.TrimSpace(wopts.OutputDir)
	if dir == "" {
		return nil
	}
	st, err := os.Stat(dir)
	switch {
	case err == nil && st.IsDir():
		f, err := os.CreateTemp(dir, ".wcheck-*")
		if err != nil {
			return err
		}
		name := f.Name()
		_ = f.Close()
		_ = os.Remove(name)
		return nil
	case err == nil:
		return fmt.Errorf("%w: output_dir is not a directory: %s", contract.ErrConfigInvalid, dir)
	case !os.IsNotExist(err):
		return err
	}
	parent := filepath.Dir(filepath.Clean(dir))
	tmp, err := os.MkdirTemp(parent, ".wcheck-*")
	if err != nil {
		return err
	}
	_ = os.Remove(tmp)
	return nil
}
