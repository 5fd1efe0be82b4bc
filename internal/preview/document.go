// Package preview 负责把 HTML 片段组装成可渲染的完整文档，
// 并按最小间隔把文档推送给预览端
package preview

import (
	"strings"
)

// 预览文档引用的 CDN 资源
// 生成的片段默认可以使用这些库，无需模型自己引入
const (
	assetTailwind    = `<script src="https://cdn.tailwindcss.com"></script>`
	assetFlowbiteCSS = `<link href="https://cdnjs.cloudflare.com/ajax/libs/flowbite/1.6.6/flowbite.min.css" rel="stylesheet" />`
	assetFlowbiteJS  = `<script src="https://cdnjs.cloudflare.com/ajax/libs/flowbite/1.6.6/flowbite.min.js"></script>`
	assetFontAwesome = `<link rel="stylesheet" href="https://cdnjs.cloudflare.com/ajax/libs/font-awesome/6.4.0/css/all.min.css" />`
	assetChartJS     = `<script src="https://cdn.jsdelivr.net/npm/chart.js"></script>`
	assetAOSCSS      = `<link href="https://unpkg.com/aos@2.3.1/dist/aos.css" rel="stylesheet" />`
	assetAOSJS       = `<script src="https://unpkg.com/aos@2.3.1/dist/aos.js"></script>`
	assetGSAP        = `<script src="https://cdnjs.cloudflare.com/ajax/libs/gsap/3.11.5/gsap.min.js"></script>`
	assetLottie      = `<script src="https://cdnjs.cloudflare.com/ajax/libs/bodymovin/5.10.2/lottie.min.js"></script>`
	assetSwiperCSS   = `<link rel="stylesheet" href="https://unpkg.com/swiper@8/swiper-bundle.min.css" />`
	assetSwiperJS    = `<script src="https://unpkg.com/swiper@8/swiper-bundle.min.js"></script>`
	assetPopper      = `<script src="https://unpkg.com/@popperjs/core@2"></script>`
	assetTippy       = `<script src="https://unpkg.com/tippy.js@6"></script>`
)

// reinitScript 每次文档重建后重新初始化第三方库的脚本
// 流式过程中文档会被整页替换，依赖 DOMContentLoaded 的库不会
// 自动重新初始化，需要在文档末尾显式触发
// 每个库都做存在性检查，CDN 加载失败不影响页面本身
const reinitScript = `<script>
  (function () {
    if (typeof AOS !== 'undefined') {
      AOS.init();
    }
    if (typeof initFlowbite === 'function') {
      initFlowbite();
    }
    if (typeof lucide !== 'undefined' && typeof lucide.createIcons === 'function') {
      lucide.createIcons();
    }
    // 锚点平滑滚动，浏览器不支持 smooth 时退化为瞬时跳转
    document.querySelectorAll('a[href^="#"]').forEach(function (anchor) {
      anchor.addEventListener('click', function (e) {
        var target = document.querySelector(anchor.getAttribute('href'));
        if (!target) return;
        e.preventDefault();
        try {
          target.scrollIntoView({ behavior: 'smooth' });
        } catch (err) {
          target.scrollIntoView();
        }
      });
    });
  })();
</script>`

// editModeAttr 编辑模式下 body 标签携带的标记属性
// 预览端脚本据此决定是否挂载编辑事件
const editModeAttr = ` data-edit-mode="true"`

// BuildDocument 把 HTML 片段组装成完整的预览文档
// 片段可能是流式过程中的不完整前缀，浏览器的容错解析
// 会处理未闭合的标签，这里不做修复
// 参数:
//   - fragment: 提取出的 HTML 片段
//   - editMode: 是否处于编辑模式
//
// 返回:
//   - string: 完整的 HTML 文档
func BuildDocument(fragment string, editMode bool) string {
	var b strings.Builder
	// 预估容量：片段加上固定的头尾模板
	b.Grow(len(fragment) + 4096)

	b.WriteString("<!DOCTYPE html>\n<html lang=\"en\">\n<head>\n")
	b.WriteString("<meta charset=\"UTF-8\" />\n")
	b.WriteString("<meta name=\"viewport\" content=\"width=device-width, initial-scale=1.0\" />\n")
	writeAssets(&b)
	b.WriteString("</head>\n<body")
	if editMode {
		b.WriteString(editModeAttr)
	}
	b.WriteString(">\n")
	b.WriteString(fragment)
	b.WriteString("\n")
	b.WriteString(reinitScript)
	b.WriteString("\n</body>\n</html>")

	return b.String()
}

// BuildStandaloneDocument 组装用于导出的独立文档
// 与预览文档的区别:
//   - 没有编辑模式标记
//   - body 带默认的渐变背景，避免导出的页面在无样式片段时一片白
//
// 参数:
//   - fragment: 画框保存的 HTML 片段
//
// 返回:
//   - string: 可直接保存为 index.html 的完整文档
func BuildStandaloneDocument(fragment string) string {
	var b strings.Builder
	b.Grow(len(fragment) + 4096)

	b.WriteString("<!DOCTYPE html>\n<html lang=\"en\">\n<head>\n")
	b.WriteString("<meta charset=\"UTF-8\" />\n")
	b.WriteString("<meta name=\"viewport\" content=\"width=device-width, initial-scale=1.0\" />\n")
	b.WriteString("<title>Arzuno Builder Export</title>\n")
	writeAssets(&b)
	b.WriteString("</head>\n<body style=\"background: linear-gradient(135deg, #f5f7fa 0%, #e4e8f0 100%); min-height: 100vh;\">\n")
	b.WriteString(fragment)
	b.WriteString("\n")
	b.WriteString(reinitScript)
	b.WriteString("\n</body>\n</html>")

	return b.String()
}

// writeAssets 写入 CDN 资源引用
// 样式表在前，脚本在后
func writeAssets(b *strings.Builder) {
	for _, asset := range []string{
		assetFlowbiteCSS,
		assetFontAwesome,
		assetAOSCSS,
		assetSwiperCSS,
		assetTailwind,
		assetFlowbiteJS,
		assetChartJS,
		assetAOSJS,
		assetGSAP,
		assetLottie,
		assetSwiperJS,
		assetPopper,
		assetTippy,
	} {
		b.WriteString(asset)
		b.WriteString("\n")
	}
}
