package banner

import "fmt"

const banner = `
 ██████╗██╗  ██╗ █████╗ ████████╗██████╗ ███████╗██╗      █████╗ ██╗   ██╗
██╔════╝██║  ██║██╔══██╗╚══██╔══╝██╔══██╗██╔════╝██║     ██╔══██╗╚██╗ ██╔╝
██║     ███████║███████║   ██║   ██████╔╝█████╗  ██║     ███████║ ╚████╔╝
██║     ██╔══██║██╔══██║   ██║   ██╔══██╗██╔══╝  ██║     ██╔══██║  ╚██╔╝
╚██████╗██║  ██║██║  ██║   ██║   ██║  ██║███████╗███████╗██║  ██║   ██║
 ╚═════╝╚═╝  ╚═╝╚═╝  ╚═╝   ╚═╝   ╚═╝  ╚═╝╚══════╝╚══════╝╚═╝  ╚═╝   ╚═╝
`

// Print writes the startup banner with the effective runtime settings and
// a short endpoint summary.
func Print(addr, dataDir, assetsDir, storageBackend, sources, version string) {
	fmt.Print(banner)
	fmt.Println("== Config =====================================================")
	fmt.Printf("Listen:   %s\n", addr)
	fmt.Printf("Data:     %s (%s)\n", dataDir, storageBackend)
	fmt.Printf("Assets:   %s\n", assetsDir)
	if version != "" {
		fmt.Printf("Version:  %s\n", version)
	}
	if sources != "" {
		fmt.Printf("Config sources: %s\n", sources)
	}
	fmt.Println("\n== Endpoints ==================================================")
	fmt.Println("GET  /messages   - Full message log (JSON array)")
	fmt.Println("POST /messages   - Submit a message (JSON: username, message|image)")
	fmt.Println("GET  /group.json - Group record")
	fmt.Println("POST /group      - Update group record (JSON: username, name?, image?)")
	fmt.Println("GET  /ws         - Push channel (WebSocket)")
	fmt.Println("\n== Examples ===================================================")
	fmt.Printf("curl -X POST 'http://localhost%s/messages' -d '{\"username\":\"alice\",\"message\":\"hi\"}'\n", addr)
	fmt.Printf("curl 'http://localhost%s/group.json'\n", addr)
}
