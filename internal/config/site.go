package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"gopkg.in/yaml.v2"
)

// Page names used as keys in Site.Pages.
const (
	PageHome   = "home"
	PageWorks  = "works"
	PageBlog   = "blog"
	PageEditor = "editor"
)

// Site holds the per-page metadata shown in <title> and <meta> tags.
type Site struct {
	Name  string              `yaml:"name"`
	Pages map[string]PageMeta `yaml:"pages"`
}

// PageMeta is the list-state metadata for a page. TitleFormat and
// BaseKeywords apply to detail views and may be empty.
type PageMeta struct {
	Title        string   `yaml:"title"`
	Description  string   `yaml:"description"`
	Keywords     []string `yaml:"keywords"`
	TitleFormat  string   `yaml:"title_format"`
	BaseKeywords []string `yaml:"base_keywords"`
}

// DefaultSite returns the built-in metadata.
func DefaultSite() Site {
	return Site{
		Name: "Butter",
		Pages: map[string]PageMeta{
			PageHome: {
				Title:       "Portfolio of Butter",
				Description: "Butter's portfolio. Web Design, 3D Modeling, and Tech Notes.",
				Keywords:    []string{"Butter", "Portfolio", "Web Design", "3D Modeling"},
			},
			PageWorks: {
				Title:        "Works - Portfolio of Butter",
				Description:  "Projects by Butter. Web Design, 3D Modeling, and experiments.",
				Keywords:     []string{"Butter", "Portfolio", "Works", "Web Design", "3D Modeling", "Blender", "UE5"},
				TitleFormat:  "%s | Butter's Works",
				BaseKeywords: []string{"Butter", "Portfolio", "Works"},
			},
			PageBlog: {
				Title:        "Blog - Portfolio of Butter",
				Description:  "Butter's Blog - Web Design, 3D Modeling, and Tech Notes.",
				Keywords:     []string{"Butter", "Portfolio", "Blog", "Web Design", "3D Modeling", "Blender", "UE5", "JavaScript"},
				TitleFormat:  "%s | Butter's Blog",
				BaseKeywords: []string{"Butter", "Portfolio", "Blog"},
			},
			PageEditor: {
				Title:       "Editor - Portfolio of Butter",
				Description: "Content editor.",
			},
		},
	}
}

// LoadSite reads site metadata from path. A missing file yields
// DefaultSite; pages absent from the file keep their defaults.
func LoadSite(path string) (Site, error) {
	site := DefaultSite()
	if path == "" {
		return site, nil
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return site, nil
	}
	if err != nil {
		return Site{}, fmt.Errorf("reading site file: %w", err)
	}

	var file Site
	if err := yaml.Unmarshal(data, &file); err != nil {
		return Site{}, fmt.Errorf("parsing site file %s: %w", path, err)
	}
	if file.Name != "" {
		site.Name = file.Name
	}
	for name, pm := range file.Pages {
		site.Pages[name] = pm
	}
	return site, nil
}

// Page returns the metadata for name, or an empty PageMeta.
func (s Site) Page(name string) PageMeta {
	return s.Pages[name]
}
