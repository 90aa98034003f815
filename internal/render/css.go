package render

// stylesheet returns the full <style> block for one visual style, with every
// font of its set embedded. Built once per style and cached, the base64 font
// payloads make it expensive to rebuild.
func (r *Renderer) stylesheet(styleID string) string {
	if cached, found := r.cssCache.Get(styleID); found {
		return cached.(string)
	}
	set := fontSetFor(styleID)
	css := pageCSS(buildFontFaces(r.fontsDir, set, r.logger), set.TitleFamily, set.BodyFamily)
	r.cssCache.Set(styleID, css, cacheDefaultTTL)
	return css
}

func pageCSS(fontFaces, titleFamily, bodyFamily string) string {
	css := `
    <style>
      ` + fontFaces + `
      @page { margin: 0; }
      body { font-family: "` + bodyFamily + `", serif; font-size: 11.5pt; line-height: 1.65; color: #34495e; -webkit-print-color-adjust: exact; print-color-adjust: exact; margin: 0; padding: 0; }
      .page { page-break-after: always; width: 100%; height: 100vh; display: flex; flex-direction: column; box-sizing: border-box; overflow: hidden; position: relative; padding: 18mm 13mm 20mm 13mm; }
      .page:not(.cover):not(.story-page) { border: 1px solid #e0e0e0; }
      .page:last-child { page-break-after: auto; }

      .cover { background-size: cover; background-position: center center; justify-content: flex-end; align-items: flex-start; padding: 20mm 20mm 10mm 14mm; }
      .cover .cover-text-wrapper { text-align: left; }
      .cover .cover-title { font-family: "` + titleFamily + `", cursive; font-size: 32pt; line-height: 1.3; color: #FFFFFF; text-shadow: 3px 3px 0px rgba(45, 60, 45, 0.7), -1px -1px 0 rgba(45, 60, 45, 0.7), 1px -1px 0 rgba(45, 60, 45, 0.7), -1px 1px 0 rgba(45, 60, 45, 0.7), 1px 1px 0 rgba(45, 60, 45, 0.7); margin-bottom: 1mm; }
      .cover .cover-child-dedication { font-family: "Pacifico", cursive; font-size: 18pt; color: #FCEE8D; text-shadow: 1.5px 1.5px 3px rgba(40, 50, 40, 0.9); }

      .title-page { justify-content: center; align-items: center; text-align: center; }
      .title-page h1 { font-family: "Pacifico", cursive; font-size: 42pt; margin-bottom: 8mm; color: #2c3e50; }
      .title-page .subtitle { font-family: "` + bodyFamily + `", serif; font-size: 15pt; font-style: italic; color: #555; margin-bottom: 25mm; max-width: 75%; }
      .title-page .logo-placeholder { position: absolute; bottom: 20mm; left: 0; right: 0; font-size: 9pt; color: #b0b0b0; }

      .ownership-page { display: flex; flex-direction: column; justify-content: center; align-items: center; text-align: center; }
      .ownership-page .belongs-to { font-family: "` + bodyFamily + `", serif; font-size: 14pt; font-style: italic; color: #555; margin-bottom: 8mm; }
      .ownership-page .child-name-line { font-family: "` + titleFamily + `", cursive; font-size: 28pt; color: #2c3e50; border-bottom: 2px dotted #cccccc; padding: 0 10mm 4mm 10mm; min-width: 60%; margin-bottom: 8mm; white-space: nowrap; }
      .ownership-page .adventure-seeker { font-family: "` + bodyFamily + `", serif; font-size: 12pt; color: #7f8c8d; }

      .dedication-page { justify-content: center; align-items: center; text-align: center; font-size: 13pt; font-style: italic; padding: 15% 10%; color: #34495e; line-height: 1.8; }
      .dedication-page div { max-width: 80%; }

      .story-page { background-size: cover; background-position: center center; align-items: center; justify-content: flex-end; border: none !important; padding: 0; }
      .story-page::after { content: ''; position: absolute; bottom: 0; left: 0; right: 0; height: 40%; background: linear-gradient(to top, rgba(255, 255, 255, 1) 30%, rgba(255, 255, 255, 0) 100%); z-index: 1; pointer-events: none; }
      .story-page .text-content { position: relative; z-index: 2; width: calc(100% - 20mm); max-height: 30%; margin-bottom: -10mm; padding: 15mm 12mm; font-size: 11.9pt; text-align: justify; color: #2c3e50; overflow-y: auto; }
      .story-page .text-content p { margin-top: 0; margin-bottom: 0.7em; }
      .story-page .text-content p + p { text-indent: 1.5em; }
      .story-page .text-content p:first-of-type::first-letter { font-family: "Dancing Script", cursive; font-size: 3.5em; float: left; line-height: 0.8; margin-right: 0.07em; margin-top: 0.05em; color: #34495e; }

      .ending-page { justify-content: center; align-items: center; text-align: center; }
      .ending-page .the-end-text { font-family: "` + titleFamily + `", cursive; font-size: 34pt; color: #34495e; margin-bottom: 10mm; }
      .ending-page .thank-you-text { font-family: "` + bodyFamily + `", serif; font-size: 12pt; color: #555; margin-bottom: 20mm; }
      .ending-page .logo-placeholder-ending { font-size: 10pt; color: #b0b0b0; }
    </style>
  `
	return css
}
