package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"

	"vksplice/internal/diag"
	"vksplice/internal/locate"
	"vksplice/internal/shape"
	"vksplice/internal/splice"
	"vksplice/pkg/contract"
)

// - 单线程同步：按 抽取 → 定位 → 合成 → 拼接 → 校验 → 写出 顺序执行；
// - 首错即止：任一阶段失败立即返回，目标文件保持原样；
// - 位置参数的基数与格式在任何 I/O 之前校验。

// Components 聚合运行所需的原子组件。
type Components struct {
	Reader      contract.Reader
	Splitter    contract.Splitter
	Extractor   contract.Extractor
	Synthesizer contract.Synthesizer
	Assembler   contract.Assembler
	Writer      contract.Writer
}

// Settings 运行期参数（一次调用）。
type Settings struct {
	Mode contract.Mode
	// Sources: 源 verifier 路径（single 模式恰为 1 个）。
	Sources []string
	// Discriminants: 与 Sources 按位置配对的判别值（仅 aggregate）。
	Discriminants []string
	// Dest: 目标模板路径（原地改写）。
	Dest    string
	Profile contract.Profile
}

// Result 汇总一次运行的产出（供 CLI 与测试使用）。
type Result struct {
	Dest     contract.FileID
	Sources  int
	Regions  []contract.Region
	Inserted int
}

// Run 执行完整流水线并写出目标文件。
func Run(ctx context.Context, comp Components, set Settings, logger *diag.Logger) error {
	_, err := Execute(ctx, comp, set, logger)
	return err
}

// Execute 同 Run，额外返回运行摘要。
func Execute(ctx context.Context, comp Components, set Settings, logger *diag.Logger) (Result, error) {
	if logger == nil {
		logger = diag.Nop()
	}
	if err := sanity(comp, set); err != nil {
		logger.Error("pipeline", string(diag.Classify(err)), "sanity", nil)
		return Result{}, err
	}
	prof := set.Profile
	term := diag.GetTerminal()
	term.RunStart(string(set.Mode), prof.Name, len(set.Sources))

	// 目标模板：读取并定位两函数（原始坐标）
	destID, dest, err := load(ctx, comp, logger, set.Dest)
	if err != nil {
		return Result{}, err
	}
	ltimer := logger.StartWith("locate", "find regions", string(destID))
	regions, err := locate.FindAll(dest, prof.Dest.KeyAnchor, prof.Dest.PointAnchor)
	if err != nil {
		err = contract.WithFile(err, destID)
		return Result{}, stageErr(logger, "locate", "find regions failed", ltimer, string(destID), err)
	}
	ltimer.Finish("find regions", int64(len(regions)))
	diag.IncOp("locate", "finish", "success")
	keyR, pointR := regions[0], regions[1]
	term.RegionFound(prof.Dest.KeyAnchor, keyR.First, keyR.Last)
	term.RegionFound(prof.Dest.PointAnchor, pointR.First, pointR.Last)
	logger.DebugStart("locate", "regions", string(destID), map[string]string{
		"key":   fmt.Sprintf("%d-%d", keyR.First+1, keyR.Last+1),
		"point": fmt.Sprintf("%d-%d", pointR.First+1, pointR.Last+1),
	})

	keyHeader := shape.Header(dest, keyR)
	pointHeader := shape.Header(dest, pointR)
	derived, err := shape.Derive(keyHeader, pointHeader, prof)
	if err != nil {
		err = fmt.Errorf("%s: %w", destID, err)
		return Result{}, stageErr(logger, "shape", "derive failed", nil, string(destID), err)
	}

	// 源文件：逐个抽取（按输入顺序）
	exts := make([]contract.Extraction, 0, len(set.Sources))
	for i, src := range set.Sources {
		term.Progress(i, len(set.Sources))
		ext, err := extract(ctx, comp, logger, src, derived.Shape)
		if err != nil {
			return Result{}, err
		}
		term.SourceDone(string(ext.FileID), len(ext.Key), 2*len(ext.Points))
		exts = append(exts, ext)
	}

	req := contract.SynthRequest{
		Mode:        set.Mode,
		Profile:     prof,
		KeyHeader:   keyHeader,
		PointHeader: pointHeader,
		PointArray:  derived.PointArray,
		EOL:         eolOf(dest),
	}
	if set.Mode == contract.ModeAggregate {
		req.Branches, err = contract.NewBranches(exts, canonical(set.Discriminants))
		if err != nil {
			return Result{}, stageErr(logger, "synthesizer", "pair branches failed", nil, string(destID), err)
		}
	} else {
		req.Single = exts[0]
	}
	stimer := logger.StartWith("synthesizer", "synthesize", string(destID))
	block, err := comp.Synthesizer.Synthesize(ctx, req)
	if err != nil {
		return Result{}, stageErr(logger, "synthesizer", "synthesize failed", stimer, string(destID), err)
	}
	stimer.Finish("synthesize", int64(len(block)))
	diag.IncOp("synthesizer", "finish", "success")

	// 拼接：删除两区间，在密钥函数原位置插入新块
	at := keyR.First
	block = trimTrailingBlank(dest, regions, at, block)
	out, err := splice.Apply(dest, regions, at, block)
	if err != nil {
		return Result{}, stageErr(logger, "splice", "apply failed", nil, string(destID), err)
	}
	if err := verify(dest, out, regions, at, block, prof); err != nil {
		return Result{}, stageErr(logger, "splice", "verify failed", nil, string(destID), err)
	}
	diag.IncOp("splice", "finish", "success")

	if oa, ok := comp.Writer.(contract.OriginalAware); ok {
		oa.SetOriginal(destID, dest)
	}
	atimer := logger.StartWith("assembler", "assemble", string(destID))
	r, err := comp.Assembler.Assemble(ctx, destID, out)
	if err != nil {
		return Result{}, stageErr(logger, "assembler", "assemble failed", atimer, string(destID), err)
	}
	atimer.Finish("assemble", int64(len(out)))
	diag.IncOp("assembler", "finish", "success")

	wtimer := logger.StartWith("writer", "write", string(destID))
	if err := comp.Writer.Write(ctx, destID, r); err != nil {
		return Result{}, stageErr(logger, "writer", "write failed", wtimer, string(destID), fmt.Errorf("write %s: %w", destID, err))
	}
	wtimer.Finish("write", int64(len(out)))
	diag.IncOp("writer", "finish", "success")

	snap := diag.Snapshot()
	kv := make(map[string]string, len(snap))
	for _, k := range diag.SnapshotKeys(snap) {
		kv[k] = fmt.Sprintf("%d", snap[k])
	}
	logger.DebugStart("metrics", "snapshot", string(destID), kv)

	return Result{Dest: destID, Sources: len(exts), Regions: regions, Inserted: len(block)}, nil
}

// sanity 校验组件齐备与位置参数形状（不做 I/O）。
func sanity(comp Components, set Settings) error {
	if comp.Reader == nil || comp.Splitter == nil || comp.Extractor == nil ||
		comp.Synthesizer == nil || comp.Assembler == nil || comp.Writer == nil {
		return fmt.Errorf("%w: pipeline components incomplete", contract.ErrInvariantViolation)
	}
	if set.Dest == "" {
		return fmt.Errorf("%w: destination path empty", contract.ErrInvalidArgument)
	}
	switch set.Mode {
	case contract.ModeSingle:
		if len(set.Sources) != 1 || set.Sources[0] == "" {
			return fmt.Errorf("%w: single mode takes exactly one source, got %d", contract.ErrInvalidArgument, len(set.Sources))
		}
		if len(set.Discriminants) != 0 {
			return fmt.Errorf("%w: single mode takes no discriminants", contract.ErrInvalidArgument)
		}
	case contract.ModeAggregate:
		if err := contract.ValidateDiscriminants(set.Sources, set.Discriminants, set.Profile.Dest.DiscriminantBits); err != nil {
			return err
		}
	default:
		return fmt.Errorf("%w: unknown mode %q", contract.ErrInvalidArgument, set.Mode)
	}
	if set.Profile.Mode != "" && set.Profile.Mode != set.Mode {
		return fmt.Errorf("%w: profile %q is for %s mode, got %s", contract.ErrInvalidArgument, set.Profile.Name, set.Profile.Mode, set.Mode)
	}
	if set.Profile.Dest.KeyAnchor == "" || set.Profile.Dest.PointAnchor == "" {
		return fmt.Errorf("%w: profile %q has no destination anchors", contract.ErrConfigInvalid, set.Profile.Name)
	}
	return nil
}

// load 读取并拆分单个文件。
func load(ctx context.Context, comp Components, logger *diag.Logger, path string) (contract.FileID, []contract.Line, error) {
	rtimer := logger.StartWith("reader", "open", path)
	id, rc, err := comp.Reader.Open(ctx, path)
	if err != nil {
		return "", nil, stageErr(logger, "reader", "open failed", rtimer, path, err)
	}
	defer rc.Close()
	lines, err := comp.Splitter.Split(ctx, id, rc)
	if err != nil {
		return "", nil, stageErr(logger, "splitter", "split failed", rtimer, string(id), err)
	}
	rtimer.Finish("read", int64(len(lines)))
	diag.IncOp("reader", "finish", "success")
	return id, lines, nil
}

func extract(ctx context.Context, comp Components, logger *diag.Logger, path string, sh contract.Shape) (contract.Extraction, error) {
	id, lines, err := load(ctx, comp, logger, path)
	if err != nil {
		return contract.Extraction{}, err
	}
	xtimer := logger.StartWith("extractor", "extract", string(id))
	ext, err := comp.Extractor.Extract(ctx, id, lines, sh)
	if err != nil {
		return contract.Extraction{}, stageErr(logger, "extractor", "extract failed", xtimer, string(id), contract.WithFile(err, id))
	}
	xtimer.Finish("extract", int64(len(ext.Key)+2*len(ext.Points)))
	diag.IncOp("extractor", "finish", "success")
	logger.DebugStart("extractor", "vectors", string(id), map[string]string{
		"key":    fmt.Sprintf("%d", len(ext.Key)),
		"coords": fmt.Sprintf("%d", 2*len(ext.Points)),
	})
	return ext, nil
}

// verify 在输出上重新定位两函数，确认其恰为新块，且区间外行未被改动。
func verify(orig, out []contract.Line, regions []contract.Region, at int, block []contract.Line, prof contract.Profile) error {
	want, err := locate.FindAll(block, prof.Dest.KeyAnchor, prof.Dest.PointAnchor)
	if err != nil {
		return fmt.Errorf("%w: synthesized block does not re-locate: %v", contract.ErrInvariantViolation, err)
	}
	got, err := locate.FindAll(out, prof.Dest.KeyAnchor, prof.Dest.PointAnchor)
	if err != nil {
		return fmt.Errorf("%w: output does not re-locate: %v", contract.ErrInvariantViolation, err)
	}
	off := splice.Offset(regions, at)
	for i := range want {
		w := contract.Region{First: want[i].First + off, Open: want[i].Open + off, Last: want[i].Last + off}
		if got[i] != w {
			return fmt.Errorf("%w: region %d at %+v, want %+v", contract.ErrInvariantViolation, i, got[i], w)
		}
	}
	kept := splice.Untouched(orig, regions)
	if len(out) != len(kept)+len(block) {
		return fmt.Errorf("%w: output has %d lines, want %d", contract.ErrInvariantViolation, len(out), len(kept)+len(block))
	}
	rest := make([]contract.Line, 0, len(kept))
	rest = append(rest, out[:off]...)
	rest = append(rest, out[off+len(block):]...)
	for i := range kept {
		if rest[i] != kept[i] {
			return fmt.Errorf("%w: untouched line %d changed", contract.ErrInvariantViolation, i+1)
		}
	}
	return nil
}

// trimTrailingBlank 在插入点之后的首个保留行已是空行时，去掉新块末尾的空行。
func trimTrailingBlank(orig []contract.Line, regions []contract.Region, at int, block []contract.Line) []contract.Line {
	if len(block) == 0 || !blank(block[len(block)-1]) {
		return block
	}
next:
	for i := at; i < len(orig); i++ {
		for _, r := range regions {
			if i >= r.First && i <= r.Last {
				continue next
			}
		}
		if blank(orig[i]) {
			return block[:len(block)-1]
		}
		return block
	}
	return block
}

func blank(l contract.Line) bool { return strings.TrimSpace(l.Text()) == "" }

func canonical(ds []string) []string {
	out := make([]string, len(ds))
	for i, d := range ds {
		out[i] = contract.CanonicalDiscriminant(d)
	}
	return out
}

// eolOf 取目标文件首个行终止符；无终止符时默认 "\n"。
func eolOf(lines []contract.Line) string {
	for _, l := range lines {
		if e := l.EOL(); e != "" {
			return e
		}
	}
	return "\n"
}

// stageErr 记录阶段错误事件与计数，原样返回 err。
func stageErr(logger *diag.Logger, comp, msg string, t *diag.Timer, fileID string, err error) error {
	code := diag.Classify(err)
	kv := map[string]string{"err": err.Error()}
	logger.ErrorWithKV(comp, string(code), msg, t.Since(), fileID, kv)
	diag.IncOp(comp, "error", "error")
	if code != diag.CodeUnknown {
		diag.IncError(comp, string(code))
	}
	if t != nil {
		diag.ObserveDuration(comp, "error", time.Since(*t.Since()).Milliseconds())
	}
	return err
}
